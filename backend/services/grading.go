package services

import "coursehub/backend/models"

// GradeResult is the outcome of scoring one attempt.
type GradeResult struct {
	Score      float64
	MaxScore   float64
	Percentage float64
	Passed     *bool
}

// GradeAttempt scores answers against the quiz's questions. Every question
// counts towards MaxScore whether answered or not; answers to unknown
// questions are ignored, and when a question is answered twice the last
// answer wins. Passed stays nil when the quiz has no passing score.
func GradeAttempt(questions []models.QuizQuestion, answers []models.Answer, passingScore *float64) GradeResult {
	chosen := make(map[uint]int, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = a.SelectedIndex
	}

	var res GradeResult
	for _, q := range questions {
		res.MaxScore += q.Points
		if idx, ok := chosen[q.ID]; ok && idx == q.CorrectIndex {
			res.Score += q.Points
		}
	}
	if res.MaxScore > 0 {
		res.Percentage = res.Score / res.MaxScore * 100
	}
	if passingScore != nil {
		passed := res.Percentage >= *passingScore
		res.Passed = &passed
	}
	return res
}
