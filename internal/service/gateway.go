package service

import (
	"context"
	"errors"
	"fmt"

	"righthome/internal/utils"
)

// Gateway failure classes. Only ErrUnconfigured is surfaced by the
// conversation protocols; the rest degrade to canned output.
var (
	ErrUnconfigured = errors.New("model gateway is not configured")
	ErrUnavailable  = errors.New("model gateway unavailable")
	ErrRateLimited  = errors.New("model gateway rate limited")
	ErrMalformed    = errors.New("model gateway returned a malformed response")

	ErrExtractionFailed = utils.ErrExtractionFailed
)

// ModelGateway sends a prompt to a generative text model
type ModelGateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingGateway is a ModelGateway that can deliver the reply incrementally.
// onDelta is called for every non-empty text chunk; the full text is returned.
type StreamingGateway interface {
	ModelGateway
	GenerateStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error)
}

// GatewayError carries the failure class of a model call
type GatewayError struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%v (status %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v (status %d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Is matches the failure class sentinel
func (e *GatewayError) Is(target error) bool {
	return target == e.Kind
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayError(kind error, status int, err error) *GatewayError {
	return &GatewayError{Kind: kind, StatusCode: status, Err: err}
}

// FailureKind returns a stable label for a gateway or extraction error
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
