package workflow

import "errors"

// Module errors.
var (
	ErrItemNotFound           = errors.New("order item not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrUnknownStatus          = errors.New("target status unknown or inactive")
	ErrInvalidTransition      = errors.New("transition not allowed")
	ErrMissingTracking        = errors.New("tracking number required")
	ErrForbidden              = errors.New("missing permission for this action")
	ErrBatchTooLarge          = errors.New("too many items in batch")
	ErrNoValidItems           = errors.New("no valid items in batch")
	ErrNoItemsTransitionable  = errors.New("no items can be transitioned")
	ErrConcurrentModification = errors.New("item status changed concurrently")
)
