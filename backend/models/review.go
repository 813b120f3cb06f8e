package models

import "gorm.io/gorm"

// ReviewEvent is an append-only record of every status change on a content item.
type ReviewEvent struct {
	gorm.Model
	ContentKind ContentKind `json:"content_kind" gorm:"index:idx_review_event_content"`
	ContentID   uint        `json:"content_id" gorm:"index:idx_review_event_content"`
	Action      string      `json:"action"`
	FromStatus  Status      `json:"from_status"`
	ToStatus    Status      `json:"to_status"`
	ActorID     uint        `json:"actor_id"`
	ActorRole   Role        `json:"actor_role"`
	Reason      string      `json:"reason,omitempty"`
}

// All lists every model the service migrates.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Module{},
		&Lesson{},
		&Announcement{},
		&Quiz{},
		&QuizQuestion{},
		&QuizAttempt{},
		&Assignment{},
		&AssignmentSubmission{},
		&Enrollment{},
		&LessonProgress{},
		&GuideProgress{},
		&ReviewEvent{},
	}
}
