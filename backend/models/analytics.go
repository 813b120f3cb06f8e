package models

// CourseAnalytics is the author's view of every learner actively enrolled in
// a course. Computed on read, never stored.
type CourseAnalytics struct {
	CourseID        uint                `json:"course_id"`
	CourseTitle     string              `json:"course_title"`
	Enrolled        int                 `json:"enrolled"`
	Completed       int                 `json:"completed"`
	AverageProgress float64             `json:"average_progress"`
	Learners        []CoursePerformance `json:"learners"`
}

// QuizAnalytics summarises submitted attempts of one quiz.
type QuizAnalytics struct {
	QuizID       uint    `json:"quiz_id"`
	QuizTitle    string  `json:"quiz_title"`
	Attempts     int64   `json:"attempts"`
	Learners     int64   `json:"learners"`
	AverageScore float64 `json:"average_score"`
	PassedCount  int64   `json:"passed_count"`
	AvgTimeSpent float64 `json:"avg_time_spent_seconds"`
}
