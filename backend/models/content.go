package models

// Status is the approval state shared by every content kind.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

var AllStatuses = []Status{StatusDraft, StatusPending, StatusApproved, StatusPublished, StatusArchived}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type ContentKind string

const (
	KindCourse     ContentKind = "course"
	KindModule     ContentKind = "module"
	KindLesson     ContentKind = "lesson"
	KindQuiz       ContentKind = "quiz"
	KindAssignment ContentKind = "assignment"
)

var AllKinds = []ContentKind{KindCourse, KindModule, KindLesson, KindQuiz, KindAssignment}

// Model returns an empty gorm model for the kind, nil for unknown kinds.
func (k ContentKind) Model() interface{} {
	switch k {
	case KindCourse:
		return &Course{}
	case KindModule:
		return &Module{}
	case KindLesson:
		return &Lesson{}
	case KindQuiz:
		return &Quiz{}
	case KindAssignment:
		return &Assignment{}
	}
	return nil
}

type Role string

const (
	RoleLearner Role = "LEARNER"
	RoleFaculty Role = "FACULTY"
	RoleAdmin   Role = "ADMIN"
)

var AllRoles = []Role{RoleLearner, RoleFaculty, RoleAdmin}

func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleFaculty || r == RoleAdmin
}

// Actor is the identity a request runs as, supplied by the identity provider.
type Actor struct {
	UserID uint
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
