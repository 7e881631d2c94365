package dynsoa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynsoa-run/dynsoa/dynsoa/policy"
)

func primeAgg(rt *Runtime, v ViewID, timeUs uint32) {
	rt.metrics.EmitMetric(Sample{View: v, TimeUs: timeUs, P95TileUs: timeUs, P99TileUs: timeUs})
	rt.metrics.NoteFrameEnd(v, Sample{View: v, TimeUs: timeUs, P95TileUs: timeUs, P99TileUs: timeUs})
}

func TestOnEndFrame_AlwaysTriggerPolicyRetilesAndEntersCooloff(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 200, nil)
	rt.SetPolicyValue(policy.Policy{
		Triggers:      []policy.Trigger{{When: "mean_us >= 0", Action: policy.ActionRetileAoSoA, Arg: 128, Priority: 1.0}},
		CooloffFrames: 2,
	})
	primeAgg(rt, v, 1000)

	rt.OnBeginFrame()
	rt.OnEndFrame()

	assert.Equal(t, LayoutAoSoA, rt.CurrentLayout(v))
	assert.Equal(t, 2, rt.scheduler.cooldown[v])
}

func TestOnEndFrame_SkipsViewsWithNoSamples(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 50, nil)
	rt.SetPolicyValue(policy.Demo())

	rt.OnBeginFrame()
	rt.OnEndFrame()

	assert.Equal(t, LayoutSoA, rt.CurrentLayout(v), "a view with no aggregate should never be retiled")
}

func TestOnEndFrame_CooldownSuppressesRepeatedTriggeringWhilePositive(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 200, nil)
	rt.SetPolicyValue(policy.Policy{
		Triggers:      []policy.Trigger{{When: "mean_us >= 0", Action: policy.ActionRetileAoSoA, Arg: 64, Priority: 1.0}},
		CooloffFrames: 2,
	})
	primeAgg(rt, v, 1000)

	rt.OnBeginFrame()
	rt.OnEndFrame()
	require.Equal(t, 2, rt.scheduler.cooldown[v])

	// Retile back to SoA to make a second AoSoA transition observable, then
	// run another frame while still on cooldown.
	rt.Retile(v, RetilePlan{To: LayoutSoA})
	rt.OnBeginFrame()
	rt.OnEndFrame()

	assert.Equal(t, LayoutSoA, rt.CurrentLayout(v), "cooldown should have blocked a second retile this soon")
	assert.Equal(t, 1, rt.scheduler.cooldown[v], "cooldown should tick down by one")
}

func TestOnEndFrame_ScoreThresholdFiltersLowPriorityTriggers(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 200, nil)
	// A vanishingly small priority drives score well under scoreThreshold
	// (0.05) even though the trigger's predicate is always true.
	rt.SetPolicyValue(policy.Policy{
		Triggers:      []policy.Trigger{{When: "mean_us >= 0", Action: policy.ActionRetileAoSoA, Arg: 128, Priority: 1e-6}},
		CooloffFrames: 2,
	})
	primeAgg(rt, v, 1000)

	rt.OnBeginFrame()
	rt.OnEndFrame()

	assert.Equal(t, LayoutSoA, rt.CurrentLayout(v), "a below-threshold score should never be admitted")
	assert.Zero(t, rt.scheduler.cooldown[v])
}

func TestOnEndFrame_NormalSizedViewFitsWithinBudget(t *testing.T) {
	// With the reference's very generous 200ms/frame budget and 4096
	// bytes/us bandwidth model, only a genuinely oversized view can exceed
	// it alone. This test covers only the admitted case: a single small
	// view's candidate is applied. The skip path (the admission loop uses
	// `continue`, not `break`) is not exercised here.
	rt := newTestRuntime()
	small := rt.Spawn(1, 200, nil)
	rt.SetPolicyValue(policy.Policy{
		Triggers:      []policy.Trigger{{When: "mean_us >= 0", Action: policy.ActionRetileAoSoA, Arg: 128, Priority: 1.0}},
		CooloffFrames: 2,
	})
	primeAgg(rt, small, 1000)

	rt.OnBeginFrame()
	rt.OnEndFrame()

	assert.Equal(t, LayoutAoSoA, rt.CurrentLayout(small), "a normally-sized view's candidate should fit comfortably within budget")
}

func TestRunDeferredLearning_UpdatesCoefficientsAfterMinFrameGap(t *testing.T) {
	rt := newTestRuntime()
	v := rt.Spawn(1, 200, nil)
	rt.SetPolicyValue(policy.Policy{
		Triggers:      []policy.Trigger{{When: "mean_us >= 0", Action: policy.ActionRetileAoSoA, Arg: 128, Priority: 1.0}},
		CooloffFrames: 5,
	})
	primeAgg(rt, v, 2000)

	rt.OnBeginFrame() // frame 1: applies the action
	rt.OnEndFrame()
	before := rt.LearnState()

	// Feed lower-latency samples, then advance two more frames to clear the
	// min gap. Aggregate still takes P95 from the oldest sample in its
	// 3-sample window (2000us), so the realized gain is 0 and the update is
	// driven by the negative prediction error alone.
	primeAgg(rt, v, 500)
	rt.OnBeginFrame() // frame 2
	rt.OnEndFrame()
	primeAgg(rt, v, 500)
	rt.OnBeginFrame() // frame 3: gap of 2 since the action, learning should run
	rt.OnEndFrame()

	after := rt.LearnState()
	assert.NotEqual(t, before, after, "coefficients should have moved after the deferred learning update ran")
}

func TestSetPolicy_IgnoresTextAndInstallsDemoPolicy(t *testing.T) {
	rt := newTestRuntime()
	rt.SetPolicy("this text is completely ignored")
	assert.Equal(t, policy.Demo(), rt.scheduler.policy)
}

func TestLoadState_TolerantOfMissingFile(t *testing.T) {
	rt := newTestRuntime()
	rt.scheduler.persistPath = "/nonexistent/dynsoa_learn_test.json"
	before := rt.LearnState()
	rt.LoadState()
	assert.Equal(t, before, rt.LearnState())
}

func TestSaveAndLoadState_RoundTripsCoefficients(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/learn.json"

	rt := newTestRuntime()
	rt.scheduler.persistPath = path
	rt.scheduler.learn = LearnState{ADiv: 0.11, AMem: 0.22, ATail: 0.33}
	rt.SaveState()

	rt2 := newTestRuntime()
	rt2.scheduler.persistPath = path
	rt2.LoadState()

	assert.InDelta(t, 0.11, rt2.LearnState().ADiv, 1e-9)
	assert.InDelta(t, 0.22, rt2.LearnState().AMem, 1e-9)
	assert.InDelta(t, 0.33, rt2.LearnState().ATail, 1e-9)
}

func TestFindNum_ParsesToleratesSurroundingWhitespaceAndTrailingKeys(t *testing.T) {
	v, ok := findNum(`{ "a_div": 0.07, "a_mem": 0.05 }`, `"a_mem"`)
	require.True(t, ok)
	assert.InDelta(t, 0.05, v, 1e-9)
}

func TestFindNum_MissingKeyReturnsFalse(t *testing.T) {
	_, ok := findNum(`{"a_div": 0.07}`, `"a_tail"`)
	assert.False(t, ok)
}
