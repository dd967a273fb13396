package book

import "errors"

var (
	// ErrOrderNotFound is returned by Cancel/Modify for an id that is not resting.
	ErrOrderNotFound = errors.New("book: order not found")

	// ErrInvalidModify is returned when a modify names a different side than
	// the resting order. Side and instrument changes are not amendments.
	ErrInvalidModify = errors.New("book: modify does not match resting order identity")

	// ErrInvalidOrder is returned for non-positive quantity, a missing id, or a
	// non-positive price when the book is not configured to accept one.
	ErrInvalidOrder = errors.New("book: invalid order")

	// ErrDuplicateOrder is returned when an insert reuses a live order id.
	ErrDuplicateOrder = errors.New("book: order id already resting")
)
