package llm

import "fmt"

// BaseError is the base type for all llmflow errors.
type BaseError struct {
	Message string
	Cause   error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

// ProviderError is an error surfaced by a model provider.
type ProviderError struct {
	BaseError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64 // seconds, from Retry-After when present
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContentFilterError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type ConfigError struct{ BaseError }
type AbortError struct{ BaseError }
type NetworkError struct{ BaseError }
type NoObjectError struct{ BaseError }

// ErrFromStatus maps an HTTP status code to the matching error type.
func ErrFromStatus(status int, provider, message string, retryAfter *float64) error {
	pe := ProviderError{
		BaseError:  BaseError{Message: message},
		Provider:   provider,
		StatusCode: status,
		RetryAfter: retryAfter,
	}
	switch status {
	case 400, 422:
		return &InvalidRequestError{pe}
	case 401, 403:
		return &AuthenticationError{pe}
	case 404:
		return &NotFoundError{pe}
	case 413:
		return &ContextLengthError{pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{pe}
	default:
		pe.Retryable = status >= 500
		return &pe
	}
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *RateLimitError, *ServerError, *NetworkError:
		return true
	case *AuthenticationError, *InvalidRequestError, *NotFoundError,
		*ContentFilterError, *ContextLengthError, *ConfigError,
		*AbortError, *NoObjectError:
		return false
	case *ProviderError:
		return e.Retryable
	default:
		// Unknown errors default to retryable.
		return true
	}
}
