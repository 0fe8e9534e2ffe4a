package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/condenser/internal/domain"
)

var (
	ErrUnreachable      = errors.New("unreachable")
	ErrValidationFailed = errors.New("validation failed")
)

type GatewayErrorKind int

const (
	GatewayErrorUnknown GatewayErrorKind = iota
	GatewayErrorUnreachable
	GatewayErrorValidationFailed
)

func (k GatewayErrorKind) String() string {
	switch k {
	case GatewayErrorUnreachable:
		return "unreachable"
	case GatewayErrorValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// GatewayError is the classified failure of a zome call. Message is the conductor's text, verbatim.
type GatewayError struct {
	Kind    GatewayErrorKind
	Fn      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Fn, e.Message)
}

func (e *GatewayError) Unwrap() []error {
	errs := []error{e.Err}
	switch e.Kind {
	case GatewayErrorUnreachable:
		errs = append(errs, ErrUnreachable)
	case GatewayErrorValidationFailed:
		errs = append(errs, ErrValidationFailed)
	}
	return errs
}

func classifyCallError(fn string, err error) *GatewayError {
	var already *GatewayError
	if errors.As(err, &already) {
		return already
	}

	out := &GatewayError{Kind: GatewayErrorUnknown, Fn: fn, Message: err.Error(), Err: err}

	var remote *domain.ConductorError
	switch {
	case errors.As(err, &remote):
		out.Message = remote.Message
		if remote.Type == domain.ConductorErrorRibosome {
			out.Kind = GatewayErrorValidationFailed
		}
	case errors.Is(err, domain.ErrConductorUnreachable), errors.Is(err, context.DeadlineExceeded):
		out.Kind = GatewayErrorUnreachable
	}

	return out
}

// IsGuestMessage reports whether err carries a conductor message containing text.
func IsGuestMessage(err error, text string) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return strings.Contains(gwErr.Message, text)
	}
	return err != nil && strings.Contains(err.Error(), text)
}
