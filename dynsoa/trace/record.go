// Package trace provides decision-trace record types for the scheduler's
// verbose/learn-log output. Like dynsoa/policy, this package has no
// dependency on the dynsoa package -- it stores pure data.
package trace

// Header is the learn-log CSV header.
var Header = []string{
	"frame", "view", "phase", "action", "to", "tile", "cost_us", "gain_est_us",
	"score", "base_us", "post_us", "realized_us",
	"a_div", "a_mem", "a_tail", "a_div_new", "a_mem_new", "a_tail_new",
}

// ApplyRecord captures one "apply" phase row: a retile action was admitted
// and applied in the end-of-frame applier.
type ApplyRecord struct {
	Frame     int
	View      uint64
	Action    string
	To        int
	Tile      int
	CostUs    float64
	GainEstUs float64
	Score     float64
	BaseUs    float64
	ADiv      float64
	AMem      float64
	ATail     float64
}

// Row renders the record as a learn-log CSV row, using "NA" for the
// fields a "learn" phase row would carry (post_us, realized_us, a_*_new),
// matching the reference's snprintf format exactly.
func (r ApplyRecord) Row() []string {
	return []string{
		itoa(r.Frame), utoa(r.View), "apply", r.Action,
		itoa(r.To), itoa(r.Tile),
		ftoa(r.CostUs), ftoa(r.GainEstUs), ftoa(r.Score), ftoa(r.BaseUs),
		"NA", "NA",
		ftoa(r.ADiv), ftoa(r.AMem), ftoa(r.ATail),
		"NA", "NA", "NA",
	}
}

// LearnRecord captures one "learn" phase row: the deferred gain-model
// coefficient update for a view, 2+ frames after its action was applied.
type LearnRecord struct {
	Frame                      int
	View                       uint64
	BaseUs                     float64
	PostUs                     float64
	RealizedUs                 float64
	ADiv, AMem, ATail          float64
	ADivNew, AMemNew, ATailNew float64
}

// Row renders the record as a learn-log CSV row.
func (r LearnRecord) Row() []string {
	return []string{
		itoa(r.Frame), utoa(r.View), "learn", "NA", "NA", "NA",
		"NA", "NA", "NA",
		ftoa(r.BaseUs), ftoa(r.PostUs), ftoa(r.RealizedUs),
		ftoa(r.ADiv), ftoa(r.AMem), ftoa(r.ATail),
		ftoa(r.ADivNew), ftoa(r.AMemNew), ftoa(r.ATailNew),
	}
}
