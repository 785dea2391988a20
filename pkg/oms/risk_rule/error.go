package riskrule

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation failed")

// ValidationError names the rule that rejected a request and why.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func reject(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}
