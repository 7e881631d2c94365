package dynsoa

import "math"

// actionKey encodes (to, tile_or_block) into the key BanditStat is indexed
// by, matching the reference's `to*100000 + tile_or_block` scheme.
func actionKey(to LayoutKind, tileOrBlock int) int64 {
	return int64(to)*100000 + int64(tileOrBlock)
}

// BanditStat is a Welford-style running (mean, variance, count) of reward
// for one (view, action) pair.
type BanditStat struct {
	mean float64
	m2   float64
	n    int
}

// Update folds a new reward observation into the running statistics.
func (b *BanditStat) Update(reward float64) {
	b.n++
	delta := reward - b.mean
	b.mean += delta / float64(b.n)
	b.m2 += delta * (reward - b.mean)
}

// Mean returns the running mean reward.
func (b *BanditStat) Mean() float64 { return b.mean }

// N returns the number of reward observations folded in.
func (b *BanditStat) N() int { return b.n }

// Variance returns the Welford sample variance (m2/(n-1) for n>1, else 0).
// Not consulted by the UCB1 formula, which uses only mean and n; kept for
// diagnostics, mirroring the reference's BanditStat::var.
func (b *BanditStat) Variance() float64 {
	if b.n > 1 {
		return b.m2 / float64(b.n-1)
	}
	return 0
}

// catalogActions returns the fixed per-decision candidate set.
func (rt *Runtime) catalogActions(v ViewID) []RetilePlan {
	return []RetilePlan{
		rt.PlanAoSoA(v, 64),
		rt.PlanAoSoA(v, 128),
		rt.PlanAoSoA(v, 256),
		rt.PlanMatrix(v, 64),
	}
}

// pickWithUCB selects a candidate plan via UCB1 on (realized_us -
// est_cost_us) reward, with epsilon exploration. Decision epoch
// counter t increments on every call.
func (rt *Runtime) pickWithUCB(v ViewID, candidates []RetilePlan) RetilePlan {
	sched := rt.scheduler
	sched.banditT++

	const eps = 0.05
	if sched.rng.Float64() < eps {
		return candidates[sched.rng.Intn(len(candidates))]
	}

	perView, ok := sched.bandit[v]
	best := math.Inf(-1)
	bestPlan := candidates[0]
	for _, p := range candidates {
		key := actionKey(p.To, p.TileOrBlock)
		mean, n := 0.0, 0
		if ok {
			if st, found := perView[key]; found {
				mean, n = st.mean, st.n
			}
		}
		bonus := 1.0
		if n > 0 {
			bonus = math.Sqrt(2.0 * math.Log(math.Max(2, float64(sched.banditT))) / float64(n))
		}
		ucb := mean + bonus
		if ucb > best {
			best = ucb
			bestPlan = p
		}
	}
	return bestPlan
}

// banditUpdate folds a realized reward (realizedUs - estCostUs) into the
// running statistics for (v, plan)'s action key.
func (rt *Runtime) banditUpdate(v ViewID, plan RetilePlan, realizedUs float64) {
	sched := rt.scheduler
	perView, ok := sched.bandit[v]
	if !ok {
		perView = make(map[int64]*BanditStat)
		sched.bandit[v] = perView
	}
	key := actionKey(plan.To, plan.TileOrBlock)
	st, ok := perView[key]
	if !ok {
		st = &BanditStat{}
		perView[key] = st
	}
	st.Update(realizedUs - plan.EstCostUs)
}
