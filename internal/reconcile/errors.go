package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is matched by every *InvalidStateError via errors.Is.
	ErrInvalidState = errors.New("invalid session state")
	// ErrUnknownColumn is returned for headers not present in the source table.
	ErrUnknownColumn = errors.New("unknown source column")
	// ErrUnknownField is returned for field IDs not present in the schema.
	ErrUnknownField = errors.New("unknown target field")
)

// InvalidStateError reports an operation called in a state that does not
// allow it, such as Resolve with no open conflict. It means the caller is out
// of sync with the session.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: not allowed while %s", e.Op, e.State)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidState(op string, s *Session) error {
	state := s.mode.String()
	if s.phase == PhaseCompleted {
		state = string(PhaseCompleted)
	}
	return &InvalidStateError{Op: op, State: state}
}

func unknownColumn(header string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, header)
}

func unknownField(id string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, id)
}
