package game

import "errors"

// Operation outcomes. A nil error means the mutation was applied.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyOwned      = errors.New("already owned")
	ErrNotFound          = errors.New("not found")
	ErrLimitReached      = errors.New("limit reached")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrIntroRequired     = errors.New("intro not completed")
	ErrClosed            = errors.New("game store closed")
)
