package exam

import (
	"maps"
	"math"
	"time"
)

// Result is the outcome of a submitted session. It is produced once and
// passed around by value.
type Result struct {
	SessionID      string            `json:"session_id"`
	UserID         string            `json:"user_id"`
	SimuladoID     string            `json:"simulado_id"`
	Answers        map[string]string `json:"answers"`
	CorrectAnswers int               `json:"correct_answers"`
	TotalQuestions int               `json:"total_questions"`
	Score          int               `json:"score"`
	Elapsed        time.Duration     `json:"elapsed"`
	Passed         bool              `json:"passed"`
	CompletedAt    time.Time         `json:"completed_at"`

	// GraceSubmit is true when the result was produced after the session
	// had already expired.
	GraceSubmit bool `json:"grace_submit"`
}

// Clone returns a deep copy of the result.
func (r Result) Clone() Result {
	r.Answers = maps.Clone(r.Answers)
	return r
}

// Score counts the questions of sim answered with their correct alternative.
// Unanswered questions count as incorrect. score is the percentage rounded
// half away from zero.
func Score(sim Simulado, answers map[string]string) (correct, total, score int) {
	total = len(sim.Questions)
	if total == 0 {
		return 0, 0, 0
	}
	for _, q := range sim.Questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAlternativeID() {
			correct++
		}
	}
	return correct, total, percent(correct, total)
}

// percent returns correct/total as a percentage rounded half away from zero.
func percent(correct, total int) int {
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// QuestionOutcome describes how one question was answered. It exposes
// correctness and is only meant for display after submission.
type QuestionOutcome struct {
	Question    Question
	ChosenID    string
	ChosenText  string
	CorrectID   string
	CorrectText string
	Answered    bool
	Correct     bool
}

// Breakdown lists the outcome of every question of sim for result r, in
// the simulado's order.
func Breakdown(sim Simulado, r Result) []QuestionOutcome {
	out := make([]QuestionOutcome, 0, len(sim.Questions))
	for _, q := range sim.Questions {
		o := QuestionOutcome{
			Question:  q,
			CorrectID: q.CorrectAlternativeID(),
		}
		o.ChosenID, o.Answered = r.Answers[q.ID]
		o.Correct = o.Answered && o.ChosenID == o.CorrectID
		for _, a := range q.Alternatives {
			if a.ID == o.ChosenID {
				o.ChosenText = a.Text
			}
			if a.ID == o.CorrectID {
				o.CorrectText = a.Text
			}
		}
		out = append(out, o)
	}
	return out
}
