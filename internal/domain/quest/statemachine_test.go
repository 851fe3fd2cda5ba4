package quest

import (
	"testing"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusRejected, StatusDraft, true},
		{StatusApproved, StatusArchived, true},
		{StatusDraft, StatusApproved, false},
		{StatusApproved, StatusSubmitted, false},
		{StatusApproved, StatusRejected, false},
		{StatusArchived, StatusDraft, false},
		{StatusRejected, StatusApproved, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestTransitionFailsWithInvalidState(t *testing.T) {
	q := &Quest{Status: StatusApproved}

	err := q.Transition(StatusApproved)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if q.Status != StatusApproved {
		t.Fatalf("status changed on failed transition: %s", q.Status)
	}
}

func TestIsEditable(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusDraft:     true,
		StatusRejected:  true,
		StatusSubmitted: false,
		StatusApproved:  false,
		StatusArchived:  false,
	} {
		if got := status.IsEditable(); got != want {
			t.Errorf("%s: expected editable=%v", status, want)
		}
	}
}
