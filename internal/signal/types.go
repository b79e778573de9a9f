package signal

import (
	"fmt"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/logging"
)

// SignalError is a failed signal-cli operation. It matches
// apperrors.ErrInvalidInput when the arguments were rejected before running
// signal-cli and apperrors.ErrUpstreamUnavailable otherwise.
type SignalError struct {
	// Op is "initialize", "send", "sendGroup" or "listGroups".
	Op string

	// UserID is the sending account. Error prints it anonymized.
	UserID string

	Err error

	// Invalid marks argument validation failures.
	Invalid bool
}

func (e *SignalError) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("signal %s (%s): %v", e.Op, logging.AnonymizeChatID(e.UserID), e.Err)
	}
	return fmt.Sprintf("signal %s: %v", e.Op, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// Is maps the failure onto the shared error kinds.
func (e *SignalError) Is(target error) bool {
	if e.Invalid {
		return target == apperrors.ErrInvalidInput
	}
	return target == apperrors.ErrUpstreamUnavailable
}

// Group is a signal group from listGroups.
type Group struct {
	// ID is the base64 group identifier used by send -g
	ID string

	// Name is the human-readable group name
	Name string
}
