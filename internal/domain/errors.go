package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the warehouse core. Detailed errors wrap one of
// these, so callers should test with errors.Is.
var (
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInsufficientAvailable  = errors.New("insufficient available quantity")
	ErrInsufficientReserved   = errors.New("insufficient reserved quantity")
	ErrInvalidAdjustment      = errors.New("invalid adjustment")
	ErrInvalidState           = errors.New("invalid state")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func invalidTransition(entity string, from, to fmt.Stringer) error {
	return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidState, entity, from, to)
}

func invalidQuantity(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidQuantity}, args...)...)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
