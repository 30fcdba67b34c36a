package ipquery

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrExtraction = errors.New("ip extraction failed")
	ErrLookup     = errors.New("ip lookup failed")
	ErrStorage    = errors.New("storing ip info failed")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingStore  = errors.New("missing store")
	ErrShutdown      = errors.New("shutdown incomplete")
)

// Origin is the stage of a dispatch a DispatchError was raised in.
type Origin int

const (
	OriginExtraction Origin = iota + 1
	OriginLookup
	OriginStorage
)

func (o Origin) String() string {
	switch o {
	case OriginExtraction:
		return "extraction"
	case OriginLookup:
		return "lookup"
	case OriginStorage:
		return "storage"
	default:
		return "unknown"
	}
}

func (o Origin) sentinel() error {
	switch o {
	case OriginExtraction:
		return ErrExtraction
	case OriginLookup:
		return ErrLookup
	case OriginStorage:
		return ErrStorage
	default:
		return nil
	}
}

// DispatchError is returned for any failure the middleware itself is responsible for.
// Errors of the wrapped handler are never converted into a DispatchError.
//
// Use errors.Is with ErrExtraction, ErrLookup, or ErrStorage to check the origin.
type DispatchError struct {
	Origin Origin
	Cause  string

	err error
}

func newDispatchError(origin Origin, err error) *DispatchError {
	return &DispatchError{
		Origin: origin,
		Cause:  err.Error(),
		err:    err,
	}
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v: %s", e.Origin.sentinel(), e.Cause)
}

func (e *DispatchError) Is(target error) bool {
	return target != nil && target == e.Origin.sentinel() //nolint:errorlint,goerr113 // sentinels are compared by identity
}

func (e *DispatchError) Unwrap() error {
	return e.err
}

// toHTTPError hands the error over to echo's HTTPErrorHandler.
// The cause stays internal and is not rendered to the client.
func toHTTPError(err *DispatchError) *echo.HTTPError {
	return &echo.HTTPError{
		Code:     http.StatusInternalServerError,
		Message:  http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}
