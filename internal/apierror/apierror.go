// Package apierror provides the error envelopes returned by the API.
// Internal details (DB errors, stack traces) only reach clients through
// NewServer, and only when the caller allows it.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	// Error carries the underlying cause in development only.
	Error string `json:"error,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewServer builds a 5xx envelope. cause is included only when expose is true.
func NewServer(msg string, cause error, expose bool) *APIError {
	e := &APIError{Detail: msg}
	if expose && cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
