package exportflow

import (
	"errors"
	"testing"
	"time"
)

func TestTransition_FromPending(t *testing.T) {
	for _, target := range []Status{StatusApproved, StatusRejected, StatusExpired} {
		if err := Transition(StatusPending, target); err != nil {
			t.Errorf("pending → %s: неожиданная ошибка: %v", target, err)
		}
	}
	if err := Transition(StatusPending, StatusPending); err == nil {
		t.Error("pending → pending не должен быть допустим")
	}
}

func TestTransition_TerminalStatuses(t *testing.T) {
	terminal := []Status{StatusApproved, StatusRejected, StatusExpired}
	targets := []Status{StatusPending, StatusApproved, StatusRejected, StatusExpired}

	for _, from := range terminal {
		for _, to := range targets {
			err := Transition(from, to)
			if err == nil {
				t.Errorf("%s → %s не должен быть допустим", from, to)
				continue
			}
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Fatalf("ожидалась TransitionError, получили %T", err)
			}
			if te.Code != CodeNotPending {
				t.Errorf("%s → %s: хотели код %s, получили %s", from, to, CodeNotPending, te.Code)
			}
		}
	}
}

func TestTransition_InvalidTarget(t *testing.T) {
	err := Transition(StatusPending, Status("archived"))
	var te *TransitionError
	if !errors.As(err, &te) || te.Code != CodeInvalidTransition {
		t.Errorf("хотели INVALID_TRANSITION, получили %v", err)
	}
}

func TestEffective(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    Status
		expiresAt time.Time
		want      Status
	}{
		{"pending до истечения", StatusPending, now.Add(time.Hour), StatusPending},
		{"pending ровно в момент истечения", StatusPending, now, StatusPending},
		{"pending после истечения", StatusPending, now.Add(-time.Second), StatusExpired},
		{"approved после истечения не меняется", StatusApproved, now.Add(-time.Hour), StatusApproved},
		{"rejected не меняется", StatusRejected, now.Add(-time.Hour), StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Effective(tt.status, tt.expiresAt, now); got != tt.want {
				t.Errorf("хотели %s, получили %s", tt.want, got)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("approved"); err != nil {
		t.Errorf("ParseStatus(approved): %v", err)
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("ParseStatus(done): ожидалась ошибка")
	}
	if !IsTerminal(StatusExpired) || IsTerminal(StatusPending) {
		t.Error("IsTerminal: неверная классификация статусов")
	}
}
