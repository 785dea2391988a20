package registry

import "errors"

var (
	ErrCapacityExceeded = errors.New("live order capacity exceeded")
	ErrNotFound         = errors.New("order not found")
	ErrLockTimeout      = errors.New("timed out waiting for order lock")
	ErrDuplicateID      = errors.New("duplicate order id")
)
