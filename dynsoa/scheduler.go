package dynsoa

import (
	"math"
	"math/rand"
	"sort"

	"github.com/dynsoa-run/dynsoa/dynsoa/policy"
	"github.com/dynsoa-run/dynsoa/dynsoa/trace"
)

// LearnState is the learned, global (not per-view) set of gain-model
// coefficients, each clamped to [0, 0.25].
type LearnState struct {
	ADiv  float64
	AMem  float64
	ATail float64
}

// DefaultLearnState returns the reference's documented defaults.
func DefaultLearnState() LearnState {
	return LearnState{ADiv: 0.06, AMem: 0.04, ATail: 0.02}
}

// endOfFrameViewSpan is the view_id range the applier scans every frame:
// 1..=64.
const endOfFrameViewSpan = 64

// budgetUs is the per-frame latency budget the applier enforces; the
// reference hardcodes this even though Config.MaxRetileUs is exposed.
const budgetUs = 200000.0

// scoreThreshold is the minimum policy-driven score a candidate must clear
// to be considered at all.
const scoreThreshold = 0.05

// learnMinFrameGap is how many frames must elapse after an action before
// its deferred learning update runs.
const learnMinFrameGap = 2

// learnRate is the gradient step size for the online coefficient update.
const learnRate = 0.10

// Scheduler evaluates policy triggers, ranks candidates by a policy-driven
// gain/cost score, enforces a latency budget and per-view cool-off, and
// performs online learning of the gain coefficients. It also holds the UCB1
// bandit state (see bandit.go), which the end-of-frame applier updates but
// does not use for ranking.
type Scheduler struct {
	policy      policy.Policy
	frameIdx    int
	cooldown    map[ViewID]int
	learn       LearnState
	persistPath string

	preActionBaseline map[ViewID]float64
	actionFrame       map[ViewID]int
	lastPlan          map[ViewID]RetilePlan

	bandit  map[ViewID]map[int64]*BanditStat
	banditT int
	rng     *rand.Rand

	verbose bool
	traceW  *trace.Writer
}

func newScheduler(cfg Config) *Scheduler {
	path := cfg.PersistPath
	if path == "" {
		path = defaultPersistPath
	}
	return &Scheduler{
		policy:            policy.Demo(),
		learn:             DefaultLearnState(),
		persistPath:       path,
		cooldown:          make(map[ViewID]int),
		preActionBaseline: make(map[ViewID]float64),
		actionFrame:       make(map[ViewID]int),
		lastPlan:          make(map[ViewID]RetilePlan),
		bandit:            make(map[ViewID]map[int64]*BanditStat),
		rng:               rand.New(rand.NewSource(1)),
		verbose:           cfg.Verbose,
		traceW:            trace.NewWriter(cfg.LearnLogPath, cfg.Verbose),
	}
}

// SetPolicy installs p as the active policy. The text-based overload
// documented in the runtime (`set_policy(text)` ignoring its argument and
// installing the demo policy) is reference compatibility: the text is
// genuinely ignored, and policy.Demo is installed regardless of its
// content. Library callers who want a REAL custom policy should call
// SetPolicyValue with a policy.Policy they built or loaded from YAML
// (cmd/policyconfig.go), bypassing the text path entirely.
func (rt *Runtime) SetPolicy(text string) {
	_ = text
	rt.scheduler.policy = policy.Demo()
}

// SetPolicyValue installs p directly, without the text-ignoring demo-policy
// behavior SetPolicy carries for reference compatibility.
func (rt *Runtime) SetPolicyValue(p policy.Policy) {
	rt.scheduler.policy = p
}

// OnBeginFrame advances the frame counter.
func (rt *Runtime) OnBeginFrame() {
	rt.scheduler.frameIdx++
}

type candidate struct {
	view  ViewID
	plan  RetilePlan
	score float64
}

func baselineFromAgg(a FrameAgg) float64 {
	if a.P95Us > 0 {
		return a.P95Us
	}
	if a.MeanUs > 0 {
		return a.MeanUs
	}
	return 0
}

// OnEndFrame runs the end-of-frame applier followed by the
// deferred learning update.
func (rt *Runtime) OnEndFrame() {
	sched := rt.scheduler
	var candidates []candidate

	for v := ViewID(1); v <= endOfFrameViewSpan; v++ {
		agg := rt.metrics.Aggregate(v, 3)
		if agg.MeanUs == 0 && agg.P95Us == 0 {
			continue
		}
		if sched.cooldown[v] > 0 {
			sched.cooldown[v]--
			continue
		}

		for _, t := range sched.policy.Triggers {
			if !policy.Evaluate(t.When, agg) {
				continue
			}
			var plan RetilePlan
			switch t.Action {
			case policy.ActionRetileAoSoA:
				plan = rt.PlanAoSoA(v, t.Arg)
			case policy.ActionRetileSoA:
				plan = RetilePlan{To: LayoutSoA}
			case policy.ActionPackMatrix:
				plan = rt.PlanMatrix(v, t.Arg)
			default:
				continue
			}

			score := t.Priority * (plan.EstGainUs / math.Max(1, plan.EstCostUs))
			if score > scoreThreshold {
				candidates = append(candidates, candidate{view: v, plan: plan, score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].view < candidates[j].view
	})

	used := 0.0
	for _, c := range candidates {
		if used+c.plan.EstCostUs > budgetUs {
			continue
		}

		before := rt.metrics.Aggregate(c.view, 3)
		baseline := baselineFromAgg(before)
		if baseline > 0 {
			sched.preActionBaseline[c.view] = baseline
		}

		if c.plan.To == LayoutSoA {
			rt.RetileToSoA(c.view)
		} else {
			rt.Retile(c.view, c.plan)
		}

		used += c.plan.EstCostUs
		sched.cooldown[c.view] = sched.policy.CooloffFrames
		sched.actionFrame[c.view] = sched.frameIdx
		sched.lastPlan[c.view] = c.plan

		// Bandit bookkeeping: the ranking above stays policy-scored; each
		// admitted action advances the global UCB decision epoch here, and
		// its arm's BanditStat is updated in runDeferredLearning once the
		// reward is known.
		sched.banditT++

		sched.traceW.Emit(trace.ApplyRecord{
			Frame:     sched.frameIdx,
			View:      uint64(c.view),
			Action:    string(actionForLayout(c.plan.To)),
			To:        int(c.plan.To),
			Tile:      c.plan.TileOrBlock,
			CostUs:    c.plan.EstCostUs,
			GainEstUs: c.plan.EstGainUs,
			Score:     c.score,
			BaseUs:    baseline,
			ADiv:      sched.learn.ADiv,
			AMem:      sched.learn.AMem,
			ATail:     sched.learn.ATail,
		})
	}

	rt.runDeferredLearning()
}

func actionForLayout(to LayoutKind) policy.Action {
	switch to {
	case LayoutAoSoA:
		return policy.ActionRetileAoSoA
	case LayoutSoA:
		return policy.ActionRetileSoA
	case LayoutMatrix:
		return policy.ActionPackMatrix
	default:
		return ""
	}
}

// runDeferredLearning updates the gain-model coefficients for every view
// whose recorded action is at least learnMinFrameGap frames old.
func (rt *Runtime) runDeferredLearning() {
	sched := rt.scheduler

	for v, actFrame := range sched.actionFrame {
		if sched.frameIdx-actFrame < learnMinFrameGap {
			continue
		}

		base, ok := sched.preActionBaseline[v]
		if !ok {
			delete(sched.actionFrame, v)
			continue
		}

		after := rt.metrics.Aggregate(v, 3)
		obs := after.P95Us
		if obs <= 0 {
			obs = after.MeanUs
		}
		if obs <= 0 {
			obs = base
		}
		if obs <= 0 || base <= 0 {
			delete(sched.actionFrame, v)
			delete(sched.preActionBaseline, v)
			continue
		}

		realizedGain := math.Max(0, base-obs)

		divTerm := math.Max(0, after.BranchDiv-0.15)
		memTerm := math.Max(0, 0.75-after.MemCoalesce)
		tailTerm := math.Max(0, after.TailRatio-1.10)
		denom := 1e-6 + divTerm*divTerm + memTerm*memTerm + tailTerm*tailTerm

		pred := base * (sched.learn.ADiv*divTerm + sched.learn.AMem*memTerm + sched.learn.ATail*tailTerm)
		errVal := realizedGain - pred

		oldDiv, oldMem, oldTail := sched.learn.ADiv, sched.learn.AMem, sched.learn.ATail
		sched.learn.ADiv = clamp(oldDiv+learnRate*(errVal/base)*(divTerm/denom), 0, 0.25)
		sched.learn.AMem = clamp(oldMem+learnRate*(errVal/base)*(memTerm/denom), 0, 0.25)
		sched.learn.ATail = clamp(oldTail+learnRate*(errVal/base)*(tailTerm/denom), 0, 0.25)

		sched.traceW.Emit(trace.LearnRecord{
			Frame:      sched.frameIdx,
			View:       uint64(v),
			BaseUs:     base,
			PostUs:     obs,
			RealizedUs: realizedGain,
			ADiv:       oldDiv,
			AMem:       oldMem,
			ATail:      oldTail,
			ADivNew:    sched.learn.ADiv,
			AMemNew:    sched.learn.AMem,
			ATailNew:   sched.learn.ATail,
		})

		delete(sched.preActionBaseline, v)

		// Feed the bandit with the same reward signal the learner just
		// computed, keyed by the action that was applied.
		if plan, ok := rt.scheduler.lastAppliedPlan(v); ok {
			rt.banditUpdate(v, plan, realizedGain)
			delete(rt.scheduler.lastPlan, v)
		}
	}
}

// lastAppliedPlan returns the plan recorded in lastPlan for v's most recent
// admitted action, used only to key the deferred bandit update.
func (s *Scheduler) lastAppliedPlan(v ViewID) (RetilePlan, bool) {
	plan, ok := s.lastPlan[v]
	return plan, ok
}
