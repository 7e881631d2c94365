package dynsoa

// ScalarType enumerates the scalar element types a Field may declare.
// The runtime materializes every column as F32 and has no U32 flags
// column; ScalarType itself is metadata only.
type ScalarType uint8

const (
	ScalarF32 ScalarType = iota
	ScalarI32
	ScalarU32
	ScalarF64
	ScalarI64
)

func (t ScalarType) String() string {
	switch t {
	case ScalarF32:
		return "F32"
	case ScalarI32:
		return "I32"
	case ScalarU32:
		return "U32"
	case ScalarF64:
		return "F64"
	case ScalarI64:
		return "I64"
	default:
		return "UNKNOWN"
	}
}

// Field is component-field metadata: a name and its declared scalar type.
// Nothing in the runtime inspects Field beyond the schema registry; storage
// does not depend on it either: Spawn always creates the same six F32
// columns.
type Field struct {
	Name string
	Type ScalarType
}

// Component is a named, ordered list of fields.
type Component struct {
	Name   string
	Fields []Field
}

// ArchetypeID is a 1-based, process-lifetime identifier assigned on
// definition.
type ArchetypeID uint64

// ArchetypeDesc is a named set of component names.
type ArchetypeDesc struct {
	Name       string
	Components []string
}

// ViewID is a 1-based, dense identifier for a View.
type ViewID uint64

// KernelCtx is passed to every kernel invocation.
type KernelCtx struct {
	DT   float32
	Tile int
}

// Sample is one kernel invocation's metrics. The kernel runner only
// populates TimeUs; the other fields default to the documented constants
// (1.0 for efficiency metrics, 0.0 for miss metrics) unless the caller
// emits them explicitly via Metrics.EmitMetric.
type Sample struct {
	Kernel      string
	View        ViewID
	TimeUs      uint32
	P95TileUs   uint32
	P99TileUs   uint32
	WarpEff     float32
	BranchDiv   float32
	MemCoalesce float32
	L2MissRate  float32
}

// DefaultSample returns a Sample with the documented default constants for
// every field but Kernel/View/TimeUs.
func DefaultSample(kernel string, view ViewID, timeUs uint32) Sample {
	return Sample{
		Kernel:      kernel,
		View:        view,
		TimeUs:      timeUs,
		WarpEff:     1.0,
		MemCoalesce: 1.0,
	}
}

// FrameAgg is a per-view aggregate of recent samples.
type FrameAgg struct {
	MeanUs      float64
	P95Us       float64
	P99Us       float64
	WarpEff     float64
	BranchDiv   float64
	MemCoalesce float64
	L2Miss      float64
	TailRatio   float64 // P99Us/P95Us, 0 if P95Us == 0
}

// Field implements policy.FieldSource so predicates can be evaluated
// directly against a FrameAgg without dynsoa/policy depending on this
// package.
func (a FrameAgg) Field(name string) float64 {
	switch name {
	case "mean_us":
		return a.MeanUs
	case "p95_us":
		return a.P95Us
	case "p99_us":
		return a.P99Us
	case "warp_eff":
		return a.WarpEff
	case "branch_div":
		return a.BranchDiv
	case "mem_coalesce":
		return a.MemCoalesce
	case "l2_miss":
		return a.L2Miss
	case "tail_ratio":
		return a.TailRatio
	default:
		return 0.0
	}
}

func recomputeTailRatio(a *FrameAgg) {
	if a.P95Us > 0 {
		a.TailRatio = a.P99Us / a.P95Us
	} else {
		a.TailRatio = 0
	}
}

// MatrixBlock is a transient column-major packed view over a contiguous
// row range of K chosen columns. It is owned by the caller between
// Store.AcquireMatrixBlock and Store.ReleaseMatrixBlock.
type MatrixBlock struct {
	Data   []float32 // column-major: Data[j*Rows+i]
	Rows   int       // leading dimension (B)
	Cols   int       // K
	Offset int
	Bytes  int

	// srcColumns records the dotted column paths passed to
	// AcquireMatrixBlock, in order. It is recorded but not read anywhere:
	// write-back ignores it (see ReleaseMatrixBlock), keeping parity with
	// the documented source-fidelity quirk.
	srcColumns []string
}
