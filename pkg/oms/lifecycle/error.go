package lifecycle

import "errors"

var (
	ErrIllegalTransition = errors.New("illegal transition")
	ErrStaleEvent        = errors.New("stale event")
	ErrInvalidFill       = errors.New("invalid fill quantity")
	ErrUnknownEvent      = errors.New("unknown event kind")
	ErrCorruptHistory    = errors.New("corrupt history")
)
