package recast

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOutOfMemory  = errors.New("out of memory")
	ErrInvalidParam = errors.New("invalid param")
	ErrBuilderUsed  = errors.New("navmesh builder already used")
)

// RcAllocError reports an allocation that could not be satisfied.
type RcAllocError struct {
	Name  string
	Count int
	Cause error
}

func (e *RcAllocError) Error() string {
	msg := fmt.Sprintf("out of memory '%s' (%d)", e.Name, e.Count)
	if e.Cause != nil && !errors.Is(e.Cause, ErrOutOfMemory) {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RcAllocError) Unwrap() error {
	return ErrOutOfMemory
}

// RcStageError wraps the error that stopped the pipeline at Stage.
type RcStageError struct {
	Stage RcBuildStage
	Err   error
}

func (e *RcStageError) Error() string {
	return fmt.Sprintf("navmesh build failed at %s: %v", e.Stage, e.Err)
}

func (e *RcStageError) Unwrap() error {
	return e.Err
}

// rcMaxAlloc bounds a single buffer so that index arithmetic stays in int32.
const rcMaxAlloc = math.MaxInt32

// rcAlloc makes a zeroed slice of n elements, turning both invalid sizes and
// runtime allocation panics into an *RcAllocError.
func rcAlloc[T any](name string, n int) (buf []T, err error) {
	if n < 0 || n > rcMaxAlloc {
		return nil, &RcAllocError{Name: name, Count: n, Cause: ErrOutOfMemory}
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = &RcAllocError{Name: name, Count: n, Cause: fmt.Errorf("%v", r)}
		}
	}()
	return make([]T, n), nil
}
