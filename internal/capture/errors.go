package capture

import (
	"errors"
	"fmt"
)

// ErrPrecondition is the family of synchronous rejections: the operation is
// refused and nothing changes. Match members with errors.Is.
var ErrPrecondition = errors.New("precondition failed")

var (
	ErrAlreadyRunning    = fmt.Errorf("%w: already running", ErrPrecondition)
	ErrNotRunning        = fmt.Errorf("%w: not running", ErrPrecondition)
	ErrClearWhileRunning = fmt.Errorf("%w: cannot clear while running", ErrPrecondition)
	ErrUnknownTarget     = fmt.Errorf("%w: unknown target", ErrPrecondition)
	ErrDuplicateTarget   = fmt.Errorf("%w: target already bound", ErrPrecondition)
	ErrInvalidInterval   = fmt.Errorf("%w: time-lapse interval must be >= 1", ErrPrecondition)
)
