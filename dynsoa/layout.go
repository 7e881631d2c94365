package dynsoa

import "math"

// memBWBytesPerUs is the fixed memory-bandwidth heuristic layout.cpp uses to
// turn a byte count into a microsecond cost estimate.
const memBWBytesPerUs = 4096.0

// RetilePlan is a candidate layout transformation with estimated cost and
// gain.
type RetilePlan struct {
	To          LayoutKind
	TileOrBlock int
	EstCostUs   float64
	EstGainUs   float64
}

// PlanAoSoA builds a RetilePlan that retiles a view to AoSoA with the given
// tile size. Cost is bytes_to_move/mem_bw; gain combines the divergence,
// coalescing and tail-ratio terms weighted by the runtime's learned
// coefficients.
func (rt *Runtime) PlanAoSoA(id ViewID, tile int) RetilePlan {
	p := RetilePlan{To: LayoutAoSoA, TileOrBlock: tile}
	bytesF := float64(rt.store.BytesToMove(id))
	p.EstCostUs = bytesF / memBWBytesPerUs

	a := rt.metrics.Aggregate(id, 3)
	l := rt.scheduler.learn

	divTerm := math.Max(0, a.BranchDiv-0.15)
	memTerm := math.Max(0, 0.75-a.MemCoalesce)
	tailTerm := math.Max(0, a.TailRatio-1.10)
	base := a.P95Us
	if base <= 0 {
		if a.MeanUs > 0 {
			base = a.MeanUs
		} else {
			base = 500
		}
	}

	gain := base * (l.ADiv*divTerm + l.AMem*memTerm + l.ATail*tailTerm)
	p.EstGainUs = clamp(gain, 30, 0.35*base)
	return p
}

// PlanMatrix builds a RetilePlan for a transient matrix-block pack of the
// given block size.
func (rt *Runtime) PlanMatrix(id ViewID, block int) RetilePlan {
	p := RetilePlan{To: LayoutMatrix, TileOrBlock: block}
	bytesF := float64(rt.store.BytesToMove(id))
	p.EstCostUs = 0.25 * (bytesF / memBWBytesPerUs)

	a := rt.metrics.Aggregate(id, 3)
	l := rt.scheduler.learn

	memTerm := math.Max(0, 0.80-a.MemCoalesce)
	base := a.MeanUs
	if base <= 0 {
		base = 400
	}

	gain := base * (0.8 * l.AMem * memTerm)
	p.EstGainUs = clamp(gain, 15, 0.20*base)
	return p
}

// Retile dispatches a plan to the entity store. Matrix is a transient,
// caller-managed block mode (acquired via AcquireMatrixBlock) so retiling
// TO Matrix persistent storage is a no-op that still reports success.
func (rt *Runtime) Retile(id ViewID, plan RetilePlan) bool {
	switch plan.To {
	case LayoutAoSoA:
		rt.store.TransformSoAToAoSoA(id, plan.TileOrBlock)
		return true
	case LayoutSoA:
		rt.store.TransformAoSoAToSoA(id)
		return true
	case LayoutMatrix:
		return true
	default:
		return false
	}
}

// RetileToSoA is a convenience that always transforms a view back to SoA.
func (rt *Runtime) RetileToSoA(id ViewID) bool {
	rt.store.TransformAoSoAToSoA(id)
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
