package quest

import "github.com/questboard/questboard-api/internal/pkg/apperror"

// transitions lists every allowed status change.
//
//	draft -> submitted -> approved -> archived
//	submitted -> rejected -> draft (creator edit)
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusArchived},
	StatusRejected:  {StatusDraft},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves q to status to or fails with INVALID_STATE.
func (q *Quest) Transition(to Status) error {
	if !CanTransition(q.Status, to) {
		return apperror.InvalidState("quest %s is %s and cannot become %s", q.ID, q.Status, to)
	}
	q.Status = to
	return nil
}

// IsEditable reports whether the creator may change the quest.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusRejected
}
