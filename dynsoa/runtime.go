package dynsoa

// Runtime owns every piece of mutable engine state: the schema registry,
// entity store, metrics pipeline, and scheduler. This replaces the
// reference's process-wide globals with an explicitly owned context, while
// keeping the same lifecycle and operation semantics.
//
// Runtime is not safe for concurrent use except for the metrics ingestion
// path (EmitMetric), which is internally mutex-guarded to match the
// reference's single-mutex design.
type Runtime struct {
	cfg       Config
	registry  *Registry
	store     *Store
	metrics   *Metrics
	scheduler *Scheduler

	inited bool
}

// New allocates a Runtime with the given configuration. It does not load
// persisted learning state; call Init for that (mirrors the reference's
// separation of construction from dynsoa_init's first-call-wins behavior).
func New(cfg Config) *Runtime {
	return &Runtime{
		cfg:       cfg,
		registry:  newRegistry(),
		store:     newStore(),
		metrics:   newMetrics(),
		scheduler: newScheduler(cfg),
	}
}

// Init loads persisted LearnState. It is idempotent: subsequent calls
// before a Shutdown are ignored, matching the reference's call_once-backed
// dynsoa_init.
func (rt *Runtime) Init() {
	if rt.inited {
		return
	}
	rt.inited = true
	rt.LoadState()
}

// Shutdown persists LearnState if the Runtime was initialized; otherwise
// it's a no-op. After Shutdown, a subsequent Init starts fresh (re-runs the
// load).
func (rt *Runtime) Shutdown() {
	if !rt.inited {
		return
	}
	rt.SaveState()
	rt.inited = false
}

// Close releases file handles held by the metrics CSV sink and the
// scheduler's learn-log writer. It does not persist state -- call Shutdown
// for that. Tests and short-lived CLI runs should call both.
func (rt *Runtime) Close() {
	rt.metrics.Close()
	rt.scheduler.traceW.Close()
}

// Config returns the configuration the Runtime was created with.
func (rt *Runtime) Config() Config { return rt.cfg }

// LearnState returns a copy of the current learned gain-model coefficients.
func (rt *Runtime) LearnState() LearnState { return rt.scheduler.learn }

// --- Schema registry ---

// DefineComponent inserts or overwrites a component definition by name.
func (rt *Runtime) DefineComponent(c Component) { rt.registry.DefineComponent(c) }

// DefineArchetype appends an archetype descriptor and returns its new
// 1-based ArchetypeID.
func (rt *Runtime) DefineArchetype(name string, componentNames []string) ArchetypeID {
	return rt.registry.DefineArchetype(name, componentNames)
}

// --- Entity store ---

// Spawn creates a new View anchored to arch with count entities.
func (rt *Runtime) Spawn(arch ArchetypeID, count int, initFn func(row int)) ViewID {
	return rt.store.Spawn(arch, count, initFn)
}

// MakeView returns (or lazily creates) the current View for arch.
func (rt *Runtime) MakeView(arch ArchetypeID) ViewID { return rt.store.MakeView(arch) }

// ViewLen returns a view's row count.
func (rt *Runtime) ViewLen(v ViewID) int { return rt.store.ViewLen(v) }

// Column returns the backing slice for a dotted column path, or nil.
func (rt *Runtime) Column(v ViewID, path string) []float32 { return rt.store.Column(v, path) }

// CurrentLayout returns a view's current layout.
func (rt *Runtime) CurrentLayout(v ViewID) LayoutKind { return rt.store.CurrentLayout(v) }

// BytesToMove returns the total byte size of a view's columns.
func (rt *Runtime) BytesToMove(v ViewID) int { return rt.store.BytesToMove(v) }

// AcquireMatrixBlock allocates and populates a transient matrix block.
func (rt *Runtime) AcquireMatrixBlock(v ViewID, comps []string, rows, offset int) MatrixBlock {
	return rt.store.AcquireMatrixBlock(v, comps, rows, offset)
}

// ReleaseMatrixBlock frees a matrix block, optionally writing it back.
func (rt *Runtime) ReleaseMatrixBlock(v ViewID, mb *MatrixBlock, writeBack bool) {
	rt.store.ReleaseMatrixBlock(v, mb, writeBack)
}

// --- Metrics ---

// MetricsEnableCSV (re)opens the metrics CSV sink at path.
func (rt *Runtime) MetricsEnableCSV(path string) { rt.metrics.EnableCSV(path) }

// EmitMetric appends a sample to the metrics pipeline.
func (rt *Runtime) EmitMetric(s Sample) { rt.metrics.EmitMetric(s) }

// Aggregate returns a FrameAgg computed over a view's recent samples.
func (rt *Runtime) Aggregate(v ViewID, windowFrames int) FrameAgg {
	return rt.metrics.Aggregate(v, windowFrames)
}
