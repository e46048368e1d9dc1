package draft

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// GenerationErrorKind buckets provider failures into the categories the
// operator UI distinguishes.
type GenerationErrorKind string

const (
	GenCredential  GenerationErrorKind = "credential"
	GenQuota       GenerationErrorKind = "quota"
	GenNetwork     GenerationErrorKind = "network"
	GenUnspecified GenerationErrorKind = "unspecified"
)

// GenerationError wraps a draft-generation failure with its kind.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("draft generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// UserMessage maps the error kind to the message shown next to the
// failed group. Internal details stay in the server log.
func (e *GenerationError) UserMessage() string {
	switch e.Kind {
	case GenCredential:
		return "The AI provider rejected the configured API key. Check the credentials and retry."
	case GenQuota:
		return "The AI provider's rate limit was hit. Wait a minute and retry this group."
	case GenNetwork:
		return "Could not reach the AI provider. Check connectivity and retry."
	default:
		return "Draft generation failed. Retry this group."
	}
}

// UserMessage extracts the operator-facing message from any generation
// error; non-GenerationError failures get the generic retry message.
func UserMessage(err error) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.UserMessage()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "Draft generation timed out. Retry this group."
	}
	return "Draft generation failed. Retry this group."
}

// classifyStatus maps a provider HTTP status to an error kind.
func classifyStatus(status int) GenerationErrorKind {
	switch {
	case status == 401 || status == 403:
		return GenCredential
	case status == 429:
		return GenQuota
	default:
		return GenUnspecified
	}
}

// classifyTransportError inspects a request error that never produced a
// response.
func classifyTransportError(err error) *GenerationError {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: GenNetwork, Err: err}
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") {
		return &GenerationError{Kind: GenNetwork, Err: err}
	}
	return &GenerationError{Kind: GenUnspecified, Err: err}
}
