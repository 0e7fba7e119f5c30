// Package agent drives one coordinator per character against a World on a
// fixed tick.
package agent

import (
	"context"

	"github.com/cory-johannsen/roagent/internal/game/combat"
)

// EventKind is a feedback event reported by the world.
type EventKind int

const (
	EventCastStarted EventKind = iota + 1
	EventCastCompleted
	EventCastInterrupted
	// EventStepResult reports the outcome of a skill; it advances a running
	// combo and is ignored otherwise.
	EventStepResult
)

// String returns the event name for logs.
func (k EventKind) String() string {
	switch k {
	case EventCastStarted:
		return "cast_started"
	case EventCastCompleted:
		return "cast_completed"
	case EventCastInterrupted:
		return "cast_interrupted"
	case EventStepResult:
		return "step_result"
	default:
		return "unknown"
	}
}

// Event is one piece of feedback for a character.
type Event struct {
	Kind   EventKind
	Skill  string
	Hit    bool
	Damage int
}

// World is what the agent perceives and acts on: the game client bridge in
// production, sim.World in agentsim. Implementations must be safe for
// concurrent use across characters.
type World interface {
	// Snapshot returns the current view for characterID; false when the
	// character is unknown or down.
	Snapshot(characterID string) (combat.Snapshot, bool)
	// Execute performs a for characterID.
	Execute(ctx context.Context, characterID string, a combat.Action) error
	// Drain returns and clears the pending feedback for characterID.
	Drain(characterID string) []Event
}

// Stepper is implemented by worlds that advance in lock-step with the loop.
// Advance runs after every tick; done ends the loop.
type Stepper interface {
	Advance() (done bool)
}
