package oms

import "errors"

var (
	// ErrInvalidRequest wraps the *riskrule.ValidationError that rejected the request.
	ErrInvalidRequest = errors.New("invalid trade request")
	// ErrOverloaded is transient: the live order limit is reached.
	ErrOverloaded = errors.New("order manager overloaded")
)
