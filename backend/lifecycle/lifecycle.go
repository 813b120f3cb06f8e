// Package lifecycle holds the approval state machine for content items.
//
// Legality of every status change is a lookup in a table keyed by
// (kind, from status, actor role, action). A key missing from the table is an
// InvalidTransition.
package lifecycle

import (
	"coursehub/backend/apperr"
	"coursehub/backend/models"
)

type Action string

const (
	ActionEdit            Action = "edit"
	ActionRequestApproval Action = "request_approval"
	ActionPublish         Action = "publish"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionUnpublish       Action = "unpublish"
	ActionArchive         Action = "archive"
)

var AllActions = []Action{
	ActionEdit,
	ActionRequestApproval,
	ActionPublish,
	ActionApprove,
	ActionReject,
	ActionUnpublish,
	ActionArchive,
}

type Key struct {
	Kind   models.ContentKind
	From   models.Status
	Role   models.Role
	Action Action
}

var table = build()

func build() map[Key]models.Status {
	t := make(map[Key]models.Status)
	set := func(kinds []models.ContentKind, from []models.Status, role models.Role, action Action, to func(models.Status) models.Status) {
		for _, k := range kinds {
			for _, f := range from {
				t[Key{Kind: k, From: f, Role: role, Action: action}] = to(f)
			}
		}
	}
	fixed := func(s models.Status) func(models.Status) models.Status {
		return func(models.Status) models.Status { return s }
	}
	same := func(s models.Status) models.Status { return s }

	containers := []models.ContentKind{models.KindCourse, models.KindModule, models.KindLesson}
	assessments := []models.ContentKind{models.KindQuiz, models.KindAssignment}
	live := []models.Status{models.StatusDraft, models.StatusPending, models.StatusApproved, models.StatusPublished}

	// Submitting for review. Faculty "publish" means the same thing.
	for _, role := range []models.Role{models.RoleFaculty, models.RoleAdmin} {
		set(containers, []models.Status{models.StatusDraft}, role, ActionRequestApproval, fixed(models.StatusPending))
		set(assessments, []models.Status{models.StatusDraft, models.StatusApproved}, role, ActionRequestApproval, fixed(models.StatusPending))
	}
	set(containers, []models.Status{models.StatusDraft}, models.RoleFaculty, ActionPublish, fixed(models.StatusPending))
	set(assessments, []models.Status{models.StatusDraft, models.StatusApproved}, models.RoleFaculty, ActionPublish, fixed(models.StatusPending))

	// Admins publish directly.
	set(models.AllKinds, []models.Status{models.StatusDraft, models.StatusApproved, models.StatusPending}, models.RoleAdmin, ActionPublish, fixed(models.StatusPublished))

	set(models.AllKinds, []models.Status{models.StatusPending}, models.RoleAdmin, ActionApprove, fixed(models.StatusApproved))
	set(models.AllKinds, []models.Status{models.StatusPending}, models.RoleAdmin, ActionReject, fixed(models.StatusDraft))
	set(models.AllKinds, []models.Status{models.StatusPublished}, models.RoleAdmin, ActionUnpublish, fixed(models.StatusApproved))

	// Faculty edits of approved content go back through review; published content is locked.
	set(models.AllKinds, []models.Status{models.StatusDraft, models.StatusPending}, models.RoleFaculty, ActionEdit, same)
	set(models.AllKinds, []models.Status{models.StatusApproved}, models.RoleFaculty, ActionEdit, fixed(models.StatusDraft))
	set(models.AllKinds, live, models.RoleAdmin, ActionEdit, same)

	for _, role := range []models.Role{models.RoleFaculty, models.RoleAdmin} {
		set([]models.ContentKind{models.KindCourse}, live, role, ActionArchive, fixed(models.StatusArchived))
	}
	return t
}

// Next returns the status an item moves to, or an InvalidTransition error.
func Next(kind models.ContentKind, from models.Status, role models.Role, action Action) (models.Status, error) {
	to, ok := table[Key{Kind: kind, From: from, Role: role, Action: action}]
	if !ok {
		return "", apperr.New(apperr.InvalidTransition, "cannot %s %s in status %q as %s", action, kind, from, role)
	}
	return to, nil
}

// Initial is the status newly created content starts in. Admin-authored
// content skips review.
func Initial(kind models.ContentKind, role models.Role) (models.Status, error) {
	switch role {
	case models.RoleAdmin:
		return models.StatusApproved, nil
	case models.RoleFaculty:
		return models.StatusDraft, nil
	}
	return "", apperr.New(apperr.InvalidTransition, "role %s cannot create a %s", role, kind)
}

// Transitions returns a copy of the full transition table.
func Transitions() map[Key]models.Status {
	out := make(map[Key]models.Status, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

func ParseAction(s string) (Action, bool) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}
