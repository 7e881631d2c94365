package dynsoa

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxWindowSamples is the bounded FIFO window size per view.
const maxWindowSamples = 120

// ewmaAlpha is the EWMA mixing factor.
const ewmaAlpha = 0.2

type aggState struct {
	window []Sample // FIFO, oldest first, capped at maxWindowSamples
	ewma   FrameAgg
}

// Metrics ingests per-kernel samples and maintains per-view EWMA and a
// bounded sliding window. The CSV sink and sample windows are guarded
// by a single mutex, matching the reference's one-mutex design: kernels
// may be called from a caller-managed thread even though the rest of the
// runtime assumes single-threaded cooperative use.
type Metrics struct {
	mu   sync.Mutex
	csv  *csv.Writer
	file *os.File
	agg  map[ViewID]*aggState
}

func newMetrics() *Metrics {
	return &Metrics{agg: make(map[ViewID]*aggState)}
}

var csvHeader = []string{
	"kernel", "view", "time_us", "p95_tile_us", "p99_tile_us",
	"warp_eff", "branch_div", "mem_coalesce", "l2_miss_rate",
}

// EnableCSV (re)opens a CSV sink at path, writes the header, and flushes.
// Failures are silent: a best-effort Debug log is emitted but the
// sink is simply left disabled, matching "subsequent emits are no-ops".
func (m *Metrics) EnableCSV(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
		m.csv = nil
	}

	f, err := os.Create(path)
	if err != nil {
		logrus.WithError(err).Debugf("dynsoa: metrics: could not open CSV sink %q", path)
		return
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		logrus.WithError(err).Debug("dynsoa: metrics: could not write CSV header")
		_ = f.Close()
		return
	}
	w.Flush()
	m.file = f
	m.csv = w
}

// EmitMetric appends a sample to its view's window (dropping the oldest
// beyond maxWindowSamples) and, if a CSV sink is enabled, appends one row.
func (m *Metrics) EmitMetric(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.csv != nil {
		row := []string{
			s.Kernel,
			strconv.FormatUint(uint64(s.View), 10),
			strconv.FormatUint(uint64(s.TimeUs), 10),
			strconv.FormatUint(uint64(s.P95TileUs), 10),
			strconv.FormatUint(uint64(s.P99TileUs), 10),
			strconv.FormatFloat(float64(s.WarpEff), 'f', -1, 32),
			strconv.FormatFloat(float64(s.BranchDiv), 'f', -1, 32),
			strconv.FormatFloat(float64(s.MemCoalesce), 'f', -1, 32),
			strconv.FormatFloat(float64(s.L2MissRate), 'f', -1, 32),
		}
		if err := m.csv.Write(row); err != nil {
			logrus.WithError(err).Debug("dynsoa: metrics: CSV write failed")
		} else {
			m.csv.Flush()
		}
	}

	st := m.state(s.View)
	st.window = append(st.window, s)
	if len(st.window) > maxWindowSamples {
		st.window = st.window[len(st.window)-maxWindowSamples:]
	}
}

func (m *Metrics) state(v ViewID) *aggState {
	st, ok := m.agg[v]
	if !ok {
		st = &aggState{}
		m.agg[v] = st
	}
	return st
}

// NoteFrameEnd updates the per-view EWMA with mixing factor alpha=0.2.
// MeanUs, WarpEff, P95Us and P99Us are seeded directly from the observation
// while they are 0; after that, and always for BranchDiv, MemCoalesce and
// L2Miss, updates use new = (1-alpha)*old + alpha*obs. TailRatio is
// recomputed from the updated P95/P99.
func (m *Metrics) NoteFrameEnd(v ViewID, s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &m.state(v).ewma
	lerp := func(cur, obs float64) float64 { return (1-ewmaAlpha)*cur + ewmaAlpha*obs }

	if e.MeanUs == 0 {
		e.MeanUs = float64(s.TimeUs)
	} else {
		e.MeanUs = lerp(e.MeanUs, float64(s.TimeUs))
	}
	if e.WarpEff == 0 {
		e.WarpEff = float64(s.WarpEff)
	} else {
		e.WarpEff = lerp(e.WarpEff, float64(s.WarpEff))
	}
	e.BranchDiv = lerp(e.BranchDiv, float64(s.BranchDiv))
	e.MemCoalesce = lerp(e.MemCoalesce, float64(s.MemCoalesce))
	e.L2Miss = lerp(e.L2Miss, float64(s.L2MissRate))
	if e.P95Us == 0 {
		e.P95Us = float64(s.P95TileUs)
	} else {
		e.P95Us = lerp(e.P95Us, float64(s.P95TileUs))
	}
	if e.P99Us == 0 {
		e.P99Us = float64(s.P99TileUs)
	} else {
		e.P99Us = lerp(e.P99Us, float64(s.P99TileUs))
	}
	recomputeTailRatio(e)
}

// Aggregate returns a FrameAgg computed over the last up-to-windowFrames
// samples in v's window. MeanUs/WarpEff/BranchDiv/MemCoalesce/L2Miss are the
// arithmetic mean of those samples; P95Us/P99Us are taken from the OLDEST
// sample in the scan, which is the reference's actual (non-percentile)
// behavior -- preserved here rather than "fixed" so the scheduler's
// baseline extraction stays in sync with it. Returns a zeroed aggregate if
// the view has no samples.
func (m *Metrics) Aggregate(v ViewID, windowFrames int) FrameAgg {
	m.mu.Lock()
	defer m.mu.Unlock()

	var a FrameAgg
	st, ok := m.agg[v]
	if !ok {
		return a
	}
	w := st.window
	n := 0
	for i := len(w) - 1; i >= 0 && n < windowFrames; i, n = i-1, n+1 {
		s := w[i]
		a.MeanUs += float64(s.TimeUs)
		a.WarpEff += float64(s.WarpEff)
		a.BranchDiv += float64(s.BranchDiv)
		a.MemCoalesce += float64(s.MemCoalesce)
		a.L2Miss += float64(s.L2MissRate)
		a.P95Us = float64(s.P95TileUs)
		a.P99Us = float64(s.P99TileUs)
	}
	if n > 0 {
		nf := float64(n)
		a.MeanUs /= nf
		a.WarpEff /= nf
		a.BranchDiv /= nf
		a.MemCoalesce /= nf
		a.L2Miss /= nf
		recomputeTailRatio(&a)
	}
	return a
}

// Close releases the CSV sink, if any.
func (m *Metrics) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file != nil {
		m.csv.Flush()
		_ = m.file.Close()
		m.file = nil
		m.csv = nil
	}
}
