package domain

import "errors"

// Error-kind sentinels. Wrap with fmt.Errorf("...: %w", ErrX) for context;
// callers discriminate with errors.Is, never string matching.
var (
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrDuplicateOrderID  = errors.New("duplicate order id")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidPositionOp = errors.New("invalid position operation")
	ErrNoMatch           = errors.New("no match")
	ErrRepositoryFailure = errors.New("repository failure")
	ErrEmptyBook         = errors.New("empty book side")
)
