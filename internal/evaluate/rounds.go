package evaluate

// Round describes one interview stage. The sequence is fixed; start_round
// lets a session skip earlier stages.
type Round struct {
	Name  string
	Label string
	Count int
	Goal  string
}

var rounds = []Round{
	{
		Name:  "screening",
		Label: "Round 1",
		Count: 4,
		Goal:  "Establish baseline fit and core experience.",
	},
	{
		Name:  "deep_dive",
		Label: "Round 2",
		Count: 6,
		Goal:  "Explore depth, impact, and technical decision-making.",
	},
	{
		Name:  "challenge",
		Label: "Round 3",
		Count: 4,
		Goal:  "Stress-test claims and assess judgment under pressure.",
	},
}

// DefaultPersona is the interviewer persona attached to generated
// questions; scoring still runs once per persona.
const DefaultPersona = "neutral"

func roundSequence(startRound int) []Round {
	if startRound >= 1 && startRound <= len(rounds) {
		return rounds[startRound-1:]
	}
	return rounds
}

// TotalQuestions returns the session question count: the configured budget
// capped by the questions remaining from the start round onward.
func TotalQuestions(startRound, budget int) int {
	if budget < 1 {
		budget = 1
	}
	sum := 0
	for _, r := range roundSequence(startRound) {
		sum += r.Count
	}
	if sum < budget {
		return sum
	}
	return budget
}

// RoundForIndex maps a zero-based question index onto its round.
func RoundForIndex(index, startRound int) Round {
	running := 0
	seq := roundSequence(startRound)
	for _, r := range seq {
		running += r.Count
		if index < running {
			return r
		}
	}
	return seq[len(seq)-1]
}
