package domain

import (
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrCellNotFound   = errors.New("cell not found")
	ErrLobbyInstalled = errors.New("group already installed")
	ErrRecipeNotFound = errors.New("craving recipe not found")
	ErrInvalidInvite  = errors.New("invalid invite")
	ErrInvalidHash    = errors.New("invalid hash")
	ErrNoEntry        = errors.New("record carries no entry")

	// ErrConductorUnreachable marks transport failures between this process and the conductor.
	ErrConductorUnreachable = errors.New("conductor unreachable")
)

const (
	ConductorErrorRibosome = "ribosome_error"
	ConductorErrorInternal = "internal_error"
)

// ConductorError is an error payload returned by the conductor for a request.
type ConductorError struct {
	Type    string `msgpack:"type"`
	Message string `msgpack:"data"`
}

func (e *ConductorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func NewGuestError(message string) *ConductorError {
	return &ConductorError{Type: ConductorErrorRibosome, Message: message}
}
