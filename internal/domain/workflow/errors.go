package workflow

import "errors"

var (
	// ErrIllegalTransition is returned when a trigger is not permitted from the current stage
	ErrIllegalTransition = errors.New("illegal stage transition")

	// ErrInvalidStage is returned when a stage is not a defined workflow stage
	ErrInvalidStage = errors.New("invalid stage")

	// ErrGuardFailed is returned when every candidate transition's guard rejects the trigger
	ErrGuardFailed = errors.New("guard condition failed")
)
