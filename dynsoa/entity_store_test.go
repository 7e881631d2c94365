package dynsoa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnParticles(t *testing.T, s *Store, n int) ViewID {
	t.Helper()
	return s.Spawn(1, n, nil)
}

func TestSpawn_CreatesSixZeroedColumnsInSoALayout(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 8)

	require.Equal(t, LayoutSoA, s.CurrentLayout(v))
	require.Equal(t, 8, s.ViewLen(v))

	for _, path := range positionVelocityColumns {
		col := s.Column(v, path)
		require.Len(t, col, 8)
		for _, x := range col {
			assert.Zero(t, x)
		}
	}
}

func TestColumn_UnknownPathReturnsNil(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 4)
	assert.Nil(t, s.Column(v, "Position.w"))
}

func TestMakeView_ReturnsMostRecentMatchingArchetype(t *testing.T) {
	s := newStore()
	first := spawnParticles(t, s, 2)
	second := spawnParticles(t, s, 3)

	got := s.MakeView(1)
	assert.Equal(t, second, got)
	assert.NotEqual(t, first, got)
}

func TestMakeView_AllocatesEmptyViewForUnknownArchetype(t *testing.T) {
	s := newStore()
	v := s.MakeView(42)
	assert.Equal(t, 0, s.ViewLen(v))
}

func TestAcquireAndReleaseMatrixBlock_RoundTripsWrittenValues(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 4)

	px := s.Column(v, "Position.x")
	for i := range px {
		px[i] = float32(i + 1)
	}

	mb := s.AcquireMatrixBlock(v, []string{"Position.x", "Position.y"}, 4, 0)
	require.Equal(t, 2, mb.Cols)
	require.Equal(t, 4, mb.Rows)

	// column 0 of the block should equal Position.x
	for i := 0; i < 4; i++ {
		assert.Equal(t, px[i], mb.Data[0*4+i])
	}

	// mutate the block in place, then release with write-back
	for i := 0; i < 4; i++ {
		mb.Data[0*4+i] *= 2
	}
	s.ReleaseMatrixBlock(v, &mb, true)

	// Write-back walks the view's column order, not srcColumns -- with a
	// two-column acquire over a view whose order starts with Position.x,
	// Position.y, the first block column lands back on Position.x.
	got := s.Column(v, "Position.x")
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(2*(i+1)), got[i])
	}
	assert.Equal(t, MatrixBlock{}, mb)
}

func TestAcquireMatrixBlock_UnknownComponentLeavesZeroColumn(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 4)
	mb := s.AcquireMatrixBlock(v, []string{"Nonexistent.q"}, 4, 0)
	for _, x := range mb.Data {
		assert.Zero(t, x)
	}
}

func TestAcquireMatrixBlock_TruncatesAtViewLength(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 3)
	px := s.Column(v, "Position.x")
	px[0], px[1], px[2] = 1, 2, 3

	mb := s.AcquireMatrixBlock(v, []string{"Position.x"}, 5, 0)
	assert.Equal(t, []float32{1, 2, 3, 0, 0}, mb.Data)
}

func TestTransformSoAToAoSoA_PreservesBytesAndUpdatesLabel(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 10)
	px := s.Column(v, "Position.x")
	for i := range px {
		px[i] = float32(i)
	}
	before := append([]float32(nil), px...)

	s.TransformSoAToAoSoA(v, 4)

	assert.Equal(t, LayoutAoSoA, s.CurrentLayout(v))
	assert.Equal(t, 4, s.AosoaTile(v))
	// Byte-for-byte identity copy per column, since the reference's AoSoA
	// transform never actually interleaves components.
	assert.Equal(t, before, s.Column(v, "Position.x"))
}

func TestTransformAoSoAToSoA_IsCheapLabelResetWhenNotAoSoA(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 4)
	require.Equal(t, LayoutSoA, s.CurrentLayout(v))

	s.TransformAoSoAToSoA(v)
	assert.Equal(t, LayoutSoA, s.CurrentLayout(v))
	assert.Equal(t, 0, s.AosoaTile(v))
}

func TestTransformAoSoAToSoA_CopiesBackFromAoSoA(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 4)
	s.TransformSoAToAoSoA(v, 2)
	require.Equal(t, LayoutAoSoA, s.CurrentLayout(v))

	s.TransformAoSoAToSoA(v)
	assert.Equal(t, LayoutSoA, s.CurrentLayout(v))
	assert.Equal(t, 0, s.AosoaTile(v))
}

func TestBytesToMove_UnchangedByLayoutTransforms(t *testing.T) {
	s := newStore()
	v := spawnParticles(t, s, 16)
	before := s.BytesToMove(v)

	s.TransformSoAToAoSoA(v, 4)
	assert.Equal(t, before, s.BytesToMove(v))

	s.TransformAoSoAToSoA(v)
	assert.Equal(t, before, s.BytesToMove(v))
}
