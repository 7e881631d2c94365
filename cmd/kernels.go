package cmd

import (
	"strconv"
	"strings"

	"github.com/dynsoa-run/dynsoa/dynsoa"
)

// Demo kernels, lifted from original_source/dynsoa/tests/smoke_main.cpp's
// kernel mix: a cheap streaming update, a branch-divergent update, a
// scatter-pattern update, and a periodic matrix-block update. These exist
// to give the `run` subcommand something real to time and feed to the
// scheduler; the engine itself never inspects a kernel's body.

func kPhysics(v dynsoa.ViewID, rt *dynsoa.Runtime) {
	px := rt.Column(v, "Position.x")
	vx := rt.Column(v, "Velocity.vx")
	if px == nil || vx == nil {
		return
	}
	for i := range px {
		px[i] += vx[i] * 0.016
	}
}

func kBranchy(v dynsoa.ViewID, rt *dynsoa.Runtime) {
	px := rt.Column(v, "Position.x")
	vx := rt.Column(v, "Velocity.vx")
	if px == nil || vx == nil {
		return
	}
	for i, x := range px {
		switch {
		case x > 1000:
			px[i] = x * 0.97
		case x < -1000:
			px[i] = x * 1.03
		default:
			px[i] = x + vx[i]*0.001
		}
	}
}

func kScatter(v dynsoa.ViewID, rt *dynsoa.Runtime) {
	px := rt.Column(v, "Position.x")
	vx := rt.Column(v, "Velocity.vx")
	n := len(px)
	if px == nil || vx == nil || n == 0 {
		return
	}
	const stride = 13
	for i := 0; i < n; i++ {
		j := (i * stride) % n
		px[j] += 0.5 * vx[i]
	}
}

func kBlock(v dynsoa.ViewID, rt *dynsoa.Runtime) {
	comps := []string{"Position.x", "Velocity.vx"}
	mb := rt.AcquireMatrixBlock(v, comps, 2048, 0)
	if mb.Data == nil || mb.Rows <= 0 || mb.Cols < 2 {
		return
	}
	p := mb.Data[0*mb.Rows : 1*mb.Rows]
	vv := mb.Data[1*mb.Rows : 2*mb.Rows]
	for r := range p {
		p[r] += 0.25 * vv[r]
	}
	rt.ReleaseMatrixBlock(v, &mb, true)
}

// mixStep is one entry in a parsed kernel mix.
type mixStep struct {
	kind   string // "physics", "branchy", "scatter", "block"
	period int    // run every `period` frames; 1 = every frame
}

// parseMix parses a comma-separated kernel mix string such as
// "physics,branchy,scatter,block/8", matching smoke_main.cpp's parse_mix.
func parseMix(mix string) []mixStep {
	var out []mixStep
	for _, tok := range strings.Split(mix, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "physics", tok == "branchy", tok == "scatter":
			out = append(out, mixStep{kind: tok, period: 1})
		case strings.HasPrefix(tok, "block"):
			period := 1
			if slash := strings.Index(tok, "/"); slash >= 0 {
				if p, err := strconv.Atoi(tok[slash+1:]); err == nil && p > 0 {
					period = p
				}
			}
			out = append(out, mixStep{kind: "block", period: period})
		}
	}
	if len(out) == 0 {
		out = []mixStep{
			{kind: "physics", period: 1},
			{kind: "branchy", period: 1},
			{kind: "scatter", period: 1},
			{kind: "block", period: 8},
		}
	}
	return out
}

// runMixForFrame runs every applicable step of a parsed mix for one frame.
func runMixForFrame(rt *dynsoa.Runtime, v dynsoa.ViewID, ctx dynsoa.KernelCtx, mix []mixStep, frameIndex int64) {
	for _, m := range mix {
		switch m.kind {
		case "physics":
			rt.RunKernel("k_physics", func(v dynsoa.ViewID, _ dynsoa.KernelCtx) { kPhysics(v, rt) }, v, ctx)
		case "branchy":
			rt.RunKernel("k_branchy", func(v dynsoa.ViewID, _ dynsoa.KernelCtx) { kBranchy(v, rt) }, v, ctx)
		case "scatter":
			rt.RunKernel("k_scatter", func(v dynsoa.ViewID, _ dynsoa.KernelCtx) { kScatter(v, rt) }, v, ctx)
		case "block":
			if m.period <= 1 || frameIndex%int64(m.period) == 0 {
				rt.RunKernel("k_block", func(v dynsoa.ViewID, _ dynsoa.KernelCtx) { kBlock(v, rt) }, v, ctx)
			}
		}
	}
}
