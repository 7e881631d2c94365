package dynsoa

// LayoutKind is the physical organization of a View's columns.
type LayoutKind uint8

const (
	LayoutAoS LayoutKind = iota
	LayoutSoA
	LayoutAoSoA
	LayoutMatrix
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutAoS:
		return "AoS"
	case LayoutSoA:
		return "SoA"
	case LayoutAoSoA:
		return "AoSoA"
	case LayoutMatrix:
		return "Matrix"
	default:
		return "UNKNOWN"
	}
}

// column is a single field's backing buffer: Len*ElemSize bytes, viewed as
// float32 since every materialized column in the reference is F32.
type column struct {
	data     []float32
	elemSize int // bytes; always 4 in this port (F32-only storage)
}

func newColumn(count int) column {
	return column{data: make([]float32, count), elemSize: 4}
}

func (c column) bytes() int {
	return len(c.data) * c.elemSize
}

// viewRecord is the internal representation of a View.
type viewRecord struct {
	arch      ArchetypeID
	len       int
	columns   map[string]*column
	order     []string // column paths in definition order, for write-back
	layout    LayoutKind
	aosoaTile int
}

func (v *viewRecord) bytesToMove() int {
	sum := 0
	for _, path := range v.order {
		sum += v.columns[path].bytes()
	}
	return sum
}

// Store owns per-view columnar storage; it performs layout transforms and
// matrix-block acquisition/release. Every Column is exclusively
// owned by its containing View; the Store owns the set of Views.
type Store struct {
	views []*viewRecord // index i holds ViewID i+1 (1-based, dense)
}

func newStore() *Store {
	return &Store{}
}

var positionVelocityColumns = []string{
	"Position.x", "Position.y", "Position.z",
	"Velocity.vx", "Velocity.vy", "Velocity.vz",
}

// Spawn creates a new View anchored to arch with the given entity count and
// six pre-declared F32 columns (Position.{x,y,z}, Velocity.{vx,vy,vz}), each
// zero-initialized. If initFn is given it is invoked once per row index;
// its output is deliberately NOT bound back into storage -- rows are
// expected to be initialized via direct column writes by the caller. Spawn
// has no meaningful return value in the reference (it always returns a null
// opaque pointer); this port returns the new ViewID instead, which every Go
// caller needs anyway and the C ABI layer can still report as an opaque
// handle.
func (s *Store) Spawn(arch ArchetypeID, count int, initFn func(row int)) ViewID {
	v := &viewRecord{arch: arch, len: count, columns: make(map[string]*column), layout: LayoutSoA}
	for _, path := range positionVelocityColumns {
		col := newColumn(count)
		v.columns[path] = &col
		v.order = append(v.order, path)
	}

	if initFn != nil {
		for i := 0; i < count; i++ {
			initFn(i)
		}
	}

	s.views = append(s.views, v)
	return ViewID(len(s.views))
}

// MakeView returns the ViewID of the most recently created View matching
// arch; if none exists, it allocates a new empty (len=0) View and returns
// its id.
func (s *Store) MakeView(arch ArchetypeID) ViewID {
	for i := len(s.views) - 1; i >= 0; i-- {
		if s.views[i].arch == arch {
			return ViewID(i + 1)
		}
	}
	s.views = append(s.views, &viewRecord{arch: arch, columns: make(map[string]*column), layout: LayoutSoA})
	return ViewID(len(s.views))
}

func (s *Store) view(id ViewID) *viewRecord {
	return s.views[id-1]
}

// ViewLen returns the row count of a view.
func (s *Store) ViewLen(id ViewID) int {
	return s.view(id).len
}

// Column returns the backing float32 slice for a dotted column path, or nil
// if the path is unknown. Callers may read and write within
// [0, ViewLen(id)).
func (s *Store) Column(id ViewID, path string) []float32 {
	col, ok := s.view(id).columns[path]
	if !ok {
		return nil
	}
	return col.data
}

// CurrentLayout returns a view's current LayoutKind.
func (s *Store) CurrentLayout(id ViewID) LayoutKind {
	return s.view(id).layout
}

// AosoaTile returns the tile size a view was last transformed with, or 0 if
// it isn't currently in AoSoA layout.
func (s *Store) AosoaTile(id ViewID) int {
	return s.view(id).aosoaTile
}

// BytesToMove returns the total byte size of all of a view's columns.
// It is unchanged by any layout transform.
func (s *Store) BytesToMove(id ViewID) int {
	return s.view(id).bytesToMove()
}

// AcquireMatrixBlock allocates a K*rows column-major buffer and copies
// source column[j]'s range [offset, offset+rows) into column j of the
// block, truncating at the view's length. Unknown component paths leave
// their block columns zero-initialized.
func (s *Store) AcquireMatrixBlock(id ViewID, comps []string, rows int, offset int) MatrixBlock {
	v := s.view(id)
	k := len(comps)
	mb := MatrixBlock{
		Rows:       rows,
		Cols:       k,
		Offset:     offset,
		Bytes:      4 * rows * k,
		Data:       make([]float32, rows*k),
		srcColumns: append([]string(nil), comps...),
	}
	for j, path := range comps {
		col, ok := v.columns[path]
		if !ok {
			continue
		}
		for i := 0; i < rows; i++ {
			idx := offset + i
			if idx >= v.len {
				break
			}
			mb.Data[j*rows+i] = col.data[idx]
		}
	}
	return mb
}

// ReleaseMatrixBlock frees a block's buffer, optionally writing its columns
// back to the view first. Write-back walks the view's column-iteration
// order (v.order) rather than the original comps[] the block was acquired
// with -- this is a known source-fidelity issue carried over verbatim from
// the reference: prefer recording the original component paths
// (MatrixBlock.srcColumns, unused here) if you need intent-faithful
// write-back.
func (s *Store) ReleaseMatrixBlock(id ViewID, mb *MatrixBlock, writeBack bool) {
	if mb == nil {
		return
	}
	if writeBack && mb.Data != nil {
		v := s.view(id)
		k := mb.Cols
		rows := mb.Rows
		j := 0
		for _, path := range v.order {
			if j >= k {
				break
			}
			col := v.columns[path]
			for i := 0; i < rows; i++ {
				idx := mb.Offset + i
				if idx >= v.len {
					break
				}
				col.data[idx] = mb.Data[j*rows+i]
			}
			j++
		}
	}
	*mb = MatrixBlock{}
}

// TransformSoAToAoSoA relabels a view as AoSoA with the given tile.
//
// The reference implementation copies each column's bytes in consecutive
// chunks of up to T elements, one column at a time; because storage is
// already per-column (SoA), this is -- byte for byte -- the identity copy
// (a true AoSoA would interleave components within a tile). This port
// preserves that observable behavior rather than introducing a genuine
// interleave: the layout LABEL changes, round-trip bytes are exact, and
// the cost model (bytes_to_move / mem_bw) is what's actually under test.
func (s *Store) TransformSoAToAoSoA(id ViewID, tile int) {
	v := s.view(id)
	n := v.len
	for _, path := range v.order {
		col := v.columns[path]
		dst := make([]float32, len(col.data))
		for b := 0; b < n; b += tile {
			e := b + tile
			if e > n {
				e = n
			}
			copy(dst[b:e], col.data[b:e])
		}
		col.data = dst
	}
	v.layout = LayoutAoSoA
	v.aosoaTile = tile
}

// TransformAoSoAToSoA relabels a view back to SoA. If the view isn't
// currently AoSoA this is a cheap label reset (no copy); otherwise it
// performs a full column copy to model the migration cost, matching the
// reference's early-return branch in entity_store.cpp.
func (s *Store) TransformAoSoAToSoA(id ViewID) {
	v := s.view(id)
	if v.layout != LayoutAoSoA {
		v.layout = LayoutSoA
		v.aosoaTile = 0
		return
	}
	for _, path := range v.order {
		col := v.columns[path]
		dst := make([]float32, len(col.data))
		copy(dst, col.data)
		col.data = dst
	}
	v.layout = LayoutSoA
	v.aosoaTile = 0
}
