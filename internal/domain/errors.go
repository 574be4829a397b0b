package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed or out-of-range client request.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals a vector whose length differs from the index dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals an upstream 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable signals an upstream 5xx or overload.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrEmptyResponse signals an upstream reply without usable content.
	ErrEmptyResponse = errors.New("empty provider response")
	// ErrMalformedResponse signals a provider reply whose body could not be
	// decoded. The same request would get the same reply, so it is not retried.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrNetwork signals a transport-level failure reaching a provider.
	ErrNetwork = errors.New("provider network error")
	// ErrProviderPermanent signals an upstream failure that retrying cannot fix
	// (bad credentials, malformed request, unknown model).
	ErrProviderPermanent = errors.New("provider request rejected")
	// ErrProviderExhausted signals that every retry attempt failed.
	ErrProviderExhausted = errors.New("provider retries exhausted")
	// ErrBudgetExceeded signals an exhausted provider token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrTextSearchNotSupported signals that the backend lacks full-text search.
	ErrTextSearchNotSupported = errors.New("text search not supported by backend")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err is worth another attempt against the same provider.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrNetwork)
}

// IsProviderFailure reports whether err originated upstream rather than in the request.
func IsProviderFailure(err error) bool {
	return IsTransient(err) ||
		errors.Is(err, ErrProviderPermanent) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrProviderExhausted) ||
		errors.Is(err, ErrBudgetExceeded)
}

// IsDecodeError reports whether err came from decoding a response payload
// rather than from reaching the provider.
func IsDecodeError(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// ErrorForStatus maps an upstream HTTP status onto the provider error taxonomy.
func ErrorForStatus(status int) error {
	switch {
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrProviderUnavailable
	case status >= 400:
		return ErrProviderPermanent
	default:
		return ErrNetwork
	}
}
