package domain

import "fmt"

// ConfigurationError reports missing or invalid provider configuration.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is required", e.Setting)
}

// NotFoundError reports a lookup with no acceptable match.
type NotFoundError struct {
	What       string
	Query      string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Query)
}

// UpstreamError reports a non-2xx or malformed provider response.
type UpstreamError struct {
	Provider string
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Endpoint, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the provider may succeed on a later attempt.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// GenerativeError reports a failed or unusable completion.
type GenerativeError struct {
	Call string
	Err  error
}

func (e *GenerativeError) Error() string {
	return fmt.Sprintf("generative %s: %v", e.Call, e.Err)
}

func (e *GenerativeError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
