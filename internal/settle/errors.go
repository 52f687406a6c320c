package settle

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// BackendError is an {"error": "..."} reply from the wagering backend.
// The backend does not send error codes, so classification matches on the
// message prefixes it uses.
type BackendError struct {
	Action  string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("settle: %s: %s", e.Action, e.Message)
}

// Message prefixes used by the backend.
const (
	prefixInsufficientBalance = "insufficient balance"
	prefixInvalidBet          = "invalid bet"
	prefixInvalidThreshold    = "invalid threshold"
	prefixClientSeed          = "incorrect client seed"
	prefixUnknownAction       = "unknown action"
)

func (e *BackendError) hasPrefix(p string) bool {
	return strings.HasPrefix(strings.ToLower(e.Message), p)
}

// IsInsufficientBalance returns true if the wager exceeds the balance.
func (e *BackendError) IsInsufficientBalance() bool { return e.hasPrefix(prefixInsufficientBalance) }

// IsInvalidBet returns true if the wager exceeds the bet ceiling.
func (e *BackendError) IsInvalidBet() bool { return e.hasPrefix(prefixInvalidBet) }

// IsInvalidThreshold returns true if the threshold was out of range.
func (e *BackendError) IsInvalidThreshold() bool { return e.hasPrefix(prefixInvalidThreshold) }

// IsClientSeed returns true if the client seed had the wrong length.
func (e *BackendError) IsClientSeed() bool { return e.hasPrefix(prefixClientSeed) }

// IsUnknownAction returns true if the backend does not support the action.
func (e *BackendError) IsUnknownAction() bool { return e.hasPrefix(prefixUnknownAction) }

// IsAuth returns true for everything the backend reports while checking the
// signed message. Those messages carry no common prefix.
func (e *BackendError) IsAuth() bool {
	m := strings.ToLower(e.Message)
	return strings.Contains(m, "signature") || strings.Contains(m, "message")
}

// UserMessage is the text shown to a player for this rejection.
func (e *BackendError) UserMessage() string {
	switch {
	case e.IsInsufficientBalance():
		return "Your balance is too low for this bet."
	case e.IsInvalidBet():
		return "This bet is above the maximum allowed."
	case e.IsInvalidThreshold():
		return "The roll target is out of range for this mode."
	case e.IsClientSeed():
		return "The client seed must be between 6 and 32 characters."
	case e.IsAuth():
		return "Your session could not be verified. Please log in again."
	}
	return "The bet was rejected: " + e.Message
}

// HTTPError is a non-200 reply that did not carry an error envelope.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("settle: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// ValidationError is a request rejected locally before it was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("settle: invalid %s: %s", e.Field, e.Message)
}

// ErrUnavailable wraps transport failures: the backend could not be reached
// or did not answer in time.
var ErrUnavailable = errors.New("settle: backend unavailable")

// UserMessage maps any error returned by Client to player-facing text.
func UserMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.UserMessage()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return "The game server is not responding. Please try again."
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("The game server returned an error (HTTP %d).", he.StatusCode)
	}
	return "Something went wrong placing the bet."
}

// isDialError reports whether err happened before the request reached the
// backend, so resending cannot double-settle a bet.
func isDialError(err error) bool {
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
}
