package api

import (
	"errors"
	"net/http"

	"github.com/okian/umwero/internal/adapters/catalog"
	"github.com/okian/umwero/internal/adapters/repository"
	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/stroke"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
	ErrInternal    = errors.New("internal error")
)

// Error records the failing operation and the kind of failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap classifies err by the sentinels it carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

// WrapKind attaches an explicit kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error that only carries a kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidAttempt),
		errors.Is(err, service.ErrBatchTooLarge),
		errors.Is(err, stroke.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidLimit):
		return ErrBadRequest
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalog.ErrTemplateNotFound),
		errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, repository.ErrStoreClosed):
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
