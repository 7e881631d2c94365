package dynsoa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionKey_EncodesLayoutAndTileOrBlock(t *testing.T) {
	assert.Equal(t, int64(200000+128), actionKey(LayoutAoSoA, 128))
}

func TestBanditStat_UpdateTracksRunningMeanAndVariance(t *testing.T) {
	var st BanditStat
	for _, r := range []float64{10, 20, 30} {
		st.Update(r)
	}
	assert.InDelta(t, 20.0, st.Mean(), 1e-9)
	assert.Equal(t, 3, st.N())
	assert.InDelta(t, 100.0, st.Variance(), 1e-9) // sample variance of {10,20,30}
}

func TestBanditStat_VarianceIsZeroForFewerThanTwoObservations(t *testing.T) {
	var st BanditStat
	assert.Equal(t, 0.0, st.Variance())
	st.Update(5)
	assert.Equal(t, 0.0, st.Variance())
}

func TestCatalogActions_ReturnsFourFixedCandidates(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 50, nil)

	actions := rt.catalogActions(v)
	assert.Len(t, actions, 4)
	assert.Equal(t, LayoutAoSoA, actions[0].To)
	assert.Equal(t, LayoutMatrix, actions[3].To)
}

func TestPickWithUCB_PrefersHigherMeanArmWithSeededRNG(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 50, nil)
	candidates := rt.catalogActions(v)

	// Seed the RNG so the epsilon-exploration draws are deterministic, then
	// give one arm a much higher observed reward.
	rt.scheduler.rng.Seed(1)
	best := candidates[2]
	rt.banditUpdate(v, best, best.EstCostUs+1000)
	for _, c := range candidates {
		if c == best {
			continue
		}
		rt.banditUpdate(v, c, c.EstCostUs)
	}

	// Run many picks; with equal visit counts the UCB bonus is identical
	// across arms, so the highest-mean arm should win a strong majority.
	counts := map[RetilePlan]int{}
	for i := 0; i < 200; i++ {
		p := rt.pickWithUCB(v, candidates)
		counts[p]++
	}
	assert.Greater(t, counts[best], 100)
}

func TestBanditUpdate_AccumulatesPerViewPerActionStats(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 50, nil)
	plan := RetilePlan{To: LayoutAoSoA, TileOrBlock: 128, EstCostUs: 50}

	rt.banditUpdate(v, plan, 100)
	rt.banditUpdate(v, plan, 150)

	st := rt.scheduler.bandit[v][actionKey(plan.To, plan.TileOrBlock)]
	assert.NotNil(t, st)
	assert.Equal(t, 2, st.N())
	assert.InDelta(t, 75.0, st.Mean(), 1e-9) // rewards were 50 and 100
}
