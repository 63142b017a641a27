package workflow

import "context"

// StateMachine tracks a case's current stage and validates transitions against
// the configured transition table.
type StateMachine interface {
	// Stage returns the current stage
	Stage() Stage

	// CanFire returns true if the trigger is permitted in the current stage
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new stage if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// Peek returns the stage the trigger would transition to without applying it.
	// Guards are evaluated with the given context.
	Peek(ctx context.Context, trigger Trigger) (Stage, error)

	// PermittedTriggers returns all triggers that can be fired in the current stage
	PermittedTriggers() []Trigger
}
