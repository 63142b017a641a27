package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a candidate transition should be taken
type GuardFunc func(ctx context.Context) bool

// Builder assembles a transition table and produces state machines from it
type Builder interface {
	// Configure returns the configuration for the given stage
	Configure(stage Stage) StageConfiguration

	// Build creates a new state machine instance positioned at the given stage
	Build(initial Stage) StateMachine
}

// StageConfiguration configures the outgoing transitions of one stage
type StageConfiguration interface {
	// Permit allows a trigger to transition to the target stage
	Permit(trigger Trigger, to Stage) StageConfiguration

	// PermitIf allows a trigger to transition to the target stage when the guard passes
	PermitIf(trigger Trigger, to Stage, guard GuardFunc) StageConfiguration
}

type transition struct {
	to    Stage
	guard GuardFunc
}

type stageConfig struct {
	from        Stage
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[Stage]*stageConfig
}

type machine struct {
	current Stage
	configs map[Stage]*stageConfig
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() Builder {
	return &builder{configs: make(map[Stage]*stageConfig)}
}

func (b *builder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}

	cfg, ok := b.configs[stage]
	if !ok {
		cfg = &stageConfig{from: stage, transitions: make(map[Trigger][]transition)}
		b.configs[stage] = cfg
	}
	return cfg
}

func (b *builder) Build(initial Stage) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial stage: %s", initial))
	}

	// Copy the table so later Configure calls cannot mutate a built machine.
	configs := make(map[Stage]*stageConfig, len(b.configs))
	for stage, cfg := range b.configs {
		transitions := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			transitions[trigger] = append([]transition{}, ts...)
		}
		configs[stage] = &stageConfig{from: stage, transitions: transitions}
	}

	return &machine{current: initial, configs: configs}
}

func (c *stageConfig) Permit(trigger Trigger, to Stage) StageConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *stageConfig) PermitIf(trigger Trigger, to Stage, guard GuardFunc) StageConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

func (m *machine) Stage() Stage {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	ts := cfg.transitions[trigger]
	return len(ts) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	to, err := m.Peek(ctx, trigger)
	if err != nil {
		return err
	}
	m.current = to
	return nil
}

func (m *machine) Peek(ctx context.Context, trigger Trigger) (Stage, error) {
	cfg, ok := m.configs[m.current]
	if !ok {
		return "", fmt.Errorf("%w: trigger %s from stage %s (no configuration)", ErrIllegalTransition, trigger, m.current)
	}

	ts, ok := cfg.transitions[trigger]
	if !ok || len(ts) == 0 {
		return "", fmt.Errorf("%w: trigger %s from stage %s", ErrIllegalTransition, trigger, m.current)
	}

	// First transition whose guard passes wins.
	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			return t.to, nil
		}
	}

	return "", fmt.Errorf("%w: trigger %s from stage %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
