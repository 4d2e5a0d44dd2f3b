package device

import (
	"errors"
	"fmt"
)

// Status is a device runtime status code. Values follow the CUDA runtime
// numbering so that logs read the same as on real hardware.
type Status int

const (
	StatusSuccess              Status = 0
	StatusInvalidValue         Status = 1
	StatusMemoryAllocation     Status = 2
	StatusInvalidConfiguration Status = 9
	StatusContextDestroyed     Status = 709
	StatusLaunchFailure        Status = 719
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidValue:
		return "invalid value"
	case StatusMemoryAllocation:
		return "out of memory"
	case StatusInvalidConfiguration:
		return "invalid configuration argument"
	case StatusContextDestroyed:
		return "context is destroyed"
	case StatusLaunchFailure:
		return "unspecified launch failure"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// ErrExecution matches every *ExecutionError via errors.Is.
var ErrExecution = errors.New("device: execution failed")

// ExecutionError reports a failed launch or transfer. Op names the kernel or
// transfer that was issued, so a fault observed at a later Synchronize can be
// traced back to the expression that scheduled it.
type ExecutionError struct {
	Op     string
	Status Status
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("device: %s: %s (%d)", e.Op, e.Status, int(e.Status))
	}
	return fmt.Sprintf("device: %s: %s (%d): %v", e.Op, e.Status, int(e.Status), e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Err}
}

// StatusOf extracts the status code from err, or StatusSuccess for nil and
// StatusLaunchFailure for errors that did not originate on the device.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Status
	}
	return StatusLaunchFailure
}

func executionError(op string, status Status, err error) error {
	return &ExecutionError{Op: op, Status: status, Err: err}
}
