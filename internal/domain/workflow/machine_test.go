package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStage_IsTerminal(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected bool
	}{
		{StageReceived, false},
		{StageExtracting, false},
		{StagePendingVerification, false},
		{StageVerified, false},
		{StageAccountFrozen, false},
		{StageBalanceChecked, false},
		{StagePaymentPending, false},
		{StagePaymentSent, false},
		{StageRejected, true},
		{StageInsufficientFunds, true},
		{StageClosed, true},
		{StageNeedsManualReview, true},
		{StageFailed, true},
		{StageCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.IsTerminal(); got != tt.expected {
				t.Errorf("Stage.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		expected bool
	}{
		{"received", StageReceived, true},
		{"closed", StageClosed, true},
		{"unknown", Stage("SHIPPED"), false},
		{"empty", Stage(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.IsValid(); got != tt.expected {
				t.Errorf("Stage.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMachine_FireFollowsPermittedTransition(t *testing.T) {
	b := NewBuilder()
	b.Configure(StageReceived).Permit(TriggerIngestDocument, StageExtracting)

	m := b.Build(StageReceived)
	if err := m.Fire(context.Background(), TriggerIngestDocument); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.Stage() != StageExtracting {
		t.Errorf("Stage() = %s, want %s", m.Stage(), StageExtracting)
	}
}

func TestMachine_FireRejectsUnconfiguredTrigger(t *testing.T) {
	b := NewBuilder()
	b.Configure(StageReceived).Permit(TriggerIngestDocument, StageExtracting)

	m := b.Build(StageReceived)
	err := m.Fire(context.Background(), TriggerConfirmSettlement)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Fire() error = %v, want ErrIllegalTransition", err)
	}
	if m.Stage() != StageReceived {
		t.Errorf("stage changed on rejected trigger: %s", m.Stage())
	}
}

func TestMachine_GuardedTransitions(t *testing.T) {
	pass := func(ctx context.Context) bool { return true }
	fail := func(ctx context.Context) bool { return false }

	t.Run("first passing guard wins", func(t *testing.T) {
		b := NewBuilder()
		b.Configure(StageExtracting).
			PermitIf(TriggerCompleteExtraction, StagePendingVerification, fail).
			PermitIf(TriggerCompleteExtraction, StageNeedsManualReview, pass)

		m := b.Build(StageExtracting)
		if err := m.Fire(context.Background(), TriggerCompleteExtraction); err != nil {
			t.Fatalf("Fire() error = %v", err)
		}
		if m.Stage() != StageNeedsManualReview {
			t.Errorf("Stage() = %s, want %s", m.Stage(), StageNeedsManualReview)
		}
	})

	t.Run("all guards failing", func(t *testing.T) {
		b := NewBuilder()
		b.Configure(StageExtracting).
			PermitIf(TriggerCompleteExtraction, StagePendingVerification, fail)

		m := b.Build(StageExtracting)
		err := m.Fire(context.Background(), TriggerCompleteExtraction)
		if !errors.Is(err, ErrGuardFailed) {
			t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
		}
	})
}

func TestMachine_PeekDoesNotAdvance(t *testing.T) {
	b := NewBuilder()
	b.Configure(StagePaymentPending).Permit(TriggerConfirmSettlement, StagePaymentSent)

	m := b.Build(StagePaymentPending)
	to, err := m.Peek(context.Background(), TriggerConfirmSettlement)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if to != StagePaymentSent {
		t.Errorf("Peek() = %s, want %s", to, StagePaymentSent)
	}
	if m.Stage() != StagePaymentPending {
		t.Errorf("Peek advanced the machine to %s", m.Stage())
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	b := NewBuilder()
	b.Configure(StagePendingVerification).
		Permit(TriggerCompleteVerification, StageVerified).
		Permit(TriggerEscalate, StageNeedsManualReview).
		Permit(TriggerCancel, StageCancelled)

	m := b.Build(StagePendingVerification)
	triggers := m.PermittedTriggers()
	if len(triggers) != 3 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 3", len(triggers))
	}

	seen := make(map[Trigger]bool)
	for _, tr := range triggers {
		seen[tr] = true
	}
	for _, want := range []Trigger{TriggerCompleteVerification, TriggerEscalate, TriggerCancel} {
		if !seen[want] {
			t.Errorf("PermittedTriggers() missing %s", want)
		}
	}
}

func TestMachine_BuilderIsolation(t *testing.T) {
	b := NewBuilder()
	b.Configure(StageReceived).Permit(TriggerIngestDocument, StageExtracting)

	m := b.Build(StageReceived)

	// Configuring after Build must not leak into the built machine.
	b.Configure(StageReceived).Permit(TriggerCloseCase, StageClosed)

	if m.CanFire(TriggerCloseCase) {
		t.Error("machine observed configuration added after Build")
	}
}
