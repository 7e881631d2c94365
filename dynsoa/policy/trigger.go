// Package policy holds the declarative trigger/predicate types the
// scheduler evaluates against aggregated per-view metrics. Like
// dynsoa/trace, this package stores pure data and has no dependency on the
// dynsoa package's types; the predicate grammar in predicate.go is
// evaluated against any FieldSource, so dynsoa.FrameAgg can implement it
// without an import cycle.
package policy

// Action is one of the three retile actions a PolicyTrigger can fire.
type Action string

const (
	ActionRetileAoSoA Action = "RETILE_AOSOA"
	ActionRetileSoA   Action = "RETILE_SOA"
	ActionPackMatrix  Action = "PACK_MATRIX"
)

// Trigger is a single declarative policy rule.
type Trigger struct {
	When     string  `yaml:"when"`
	Action   Action  `yaml:"action"`
	Arg      int     `yaml:"arg"`
	Priority float64 `yaml:"priority"`
}

// Policy groups a trigger list with cool-off/spacing parameters.
type Policy struct {
	Triggers                []Trigger `yaml:"triggers"`
	CooloffFrames           int       `yaml:"cooloff_frames"`
	MinFramesBetweenRetiles int       `yaml:"min_frames_between_retiles"`
}

// Demo returns the reference's hard-coded demo policy: a single always-true
// trigger emitting RETILE_AOSOA tile 128 at priority 1.0, with a 2-frame
// cool-off. Calling Runtime.SetPolicy(text) ignores its text argument and
// installs this demo policy instead.
func Demo() Policy {
	return Policy{
		Triggers: []Trigger{
			{When: "mean_us >= 0", Action: ActionRetileAoSoA, Arg: 128, Priority: 1.0},
		},
		CooloffFrames: 2,
	}
}
