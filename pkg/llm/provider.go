package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// DefaultTimeout bounds a single provider round trip
const DefaultTimeout = 120 * time.Second

// TransportError is returned when the backend could not be reached or answered badly.
// Timeouts and 5xx/429 responses are Retryable.
type TransportError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transport error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable TransportError
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable
}

// NewRequestError classifies a failed http round trip
func NewRequestError(provider string, err error) *TransportError {
	retryable := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		retryable = true
	}
	return &TransportError{Provider: provider, Retryable: retryable, Err: err}
}

// NewStatusError classifies a non-200 response
func NewStatusError(provider string, status int, body []byte) *TransportError {
	retryable := status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	return &TransportError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  retryable,
		Err:        fmt.Errorf("body: %s", string(body)),
	}
}
