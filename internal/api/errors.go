package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/mat"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an evaluation error to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, mat.ErrArgument):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, mat.ErrShapeMismatch):
		return http.StatusBadRequest, "shape_mismatch_error"
	case errors.Is(err, mat.ErrConstraint):
		return http.StatusUnprocessableEntity, "unsupported_operation_error"
	case errors.Is(err, device.ErrExecution):
		return http.StatusInternalServerError, "device_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
