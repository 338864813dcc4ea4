package patch

func level(v float64) *float64 { return &v }

// DangerZone is a six-operator bass: two detuned three-operator stacks
// (0 → 1 → 2 and 3 → 4 → 5) mixed at 0.125 each. Play it through a
// keyboard with A3 as the reference note.
func DangerZone() *Patch {
	op := func(ratio, lvl float64, env Envelope) Operator {
		return Operator{Ratio: ratio, Level: level(lvl), Envelope: &env}
	}
	return &Patch{
		Name:          "danger-zone",
		BaseFrequency: 220,
		Operators: []Operator{
			op(20.0063, 0.2, Envelope{Decay: 0.11, Release: 0.05}),
			op(1.0003, 1.8, Envelope{Decay: 0.5, Sustain: 0.3, Release: 0.2}),
			op(1.0003, 0.59, Envelope{Decay: 0.5, Sustain: 0.3, Release: 0.4}),
			op(6.9978, 0.2, Envelope{Decay: 0.11, Release: 0.05}),
			op(0.9997, 1.4, Envelope{Decay: 0.7, Sustain: 0.2, Release: 0.2}),
			op(0.9997, 0.57, Envelope{Decay: 0.7, Sustain: 0.2, Release: 0.4}),
		},
		Connections: []Connection{
			{From: 0, To: 1},
			{From: 1, To: 2},
			{From: 3, To: 4},
			{From: 4, To: 5},
		},
		Outputs: []Output{
			{Operator: 2, Level: 0.125},
			{Operator: 5, Level: 0.125},
		},
	}
}

// Presets maps the built-in patch names to their constructors.
var Presets = map[string]func() *Patch{
	"danger-zone": DangerZone,
}
