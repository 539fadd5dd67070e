package evaluate

// Persona steers how scored feedback is phrased. Every answer is evaluated
// once per persona so the report can compare perspectives.
type Persona struct {
	Name  string
	Style string
}

var personas = []Persona{
	{
		Name:  "positive",
		Style: "Supportive and encouraging; highlights strengths first and frames gaps as growth areas.",
	},
	{
		Name:  "neutral",
		Style: "Balanced and matter-of-fact; weighs evidence without warmth or hostility.",
	},
	{
		Name:  "hostile",
		Style: "Skeptical and demanding; probes weak claims and penalizes vagueness.",
	},
}

// Personas returns the fixed evaluation personas in report order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}
