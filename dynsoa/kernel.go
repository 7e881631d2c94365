package dynsoa

import "time"

// KernelFn is a user-supplied compute routine invoked once per frame per
// view. Kernels are synchronous and opaque: the runner neither inspects nor
// parallelizes them.
type KernelFn func(v ViewID, ctx KernelCtx)

// RunKernel times fn's invocation over view v, builds a Sample with the
// elapsed microseconds, and feeds it to the metrics pipeline via
// EmitMetric and NoteFrameEnd.
func (rt *Runtime) RunKernel(name string, fn KernelFn, v ViewID, ctx KernelCtx) {
	t0 := time.Now()
	fn(v, ctx)
	elapsed := time.Since(t0)

	s := DefaultSample(name, v, uint32(elapsed.Microseconds()))
	rt.metrics.EmitMetric(s)
	rt.metrics.NoteFrameEnd(v, s)
}
