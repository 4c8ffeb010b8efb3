package ledger

import "errors"

var (
	// ErrValidation indicates the caller supplied incomplete or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrIllegalTransition indicates an event would skip a stage or move a batch backwards.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrTerminalStatus indicates the batch has reached its final stage.
	ErrTerminalStatus = errors.New("batch status is terminal")
	// ErrIDCollision indicates no unused batch id could be generated.
	ErrIDCollision = errors.New("batch id collision")
)
