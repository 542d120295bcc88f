package world

import (
	"errors"
	"fmt"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

var (
	// ErrInvalidTimestep indicates a negative or non-finite step size.
	ErrInvalidTimestep = errors.New("world: invalid timestep")

	// ErrUnknownBody indicates a handle that does not name a live body.
	ErrUnknownBody = errors.New("world: unknown body")

	// ErrStepInProgress indicates Step was called from an event handler.
	ErrStepInProgress = errors.New("world: step already in progress")

	ErrInvalidMass  = body.ErrInvalidMass
	ErrInvalidShape = geom.ErrInvalidShape
)

// ConfigError reports an entity rejected at registration. The entity is not
// simulated.
type ConfigError struct {
	Entity  string
	Reason  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("world: %s rejected: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("world: %s rejected: %s: %v", e.Entity, e.Reason, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}
