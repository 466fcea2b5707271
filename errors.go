package guard

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the SDK. Everything here is recoverable by
// guard action (re-scan, retry, re-login); nothing is fatal to the process.
var (
	// ErrMalformedPayload means a scanned payload could not be parsed or
	// was missing a required field. No network call is made for such input.
	ErrMalformedPayload = errors.New("guard: malformed scan payload")

	// ErrVerificationInFlight means a submit or verify call is already
	// outstanding. Concurrent requests are rejected, never queued.
	ErrVerificationInFlight = errors.New("guard: verification already in flight")

	// ErrNotAwaitingCode means an OTP code was submitted while the
	// controller was not in the OTP-pending state.
	ErrNotAwaitingCode = errors.New("guard: no verification awaiting a code")

	// ErrInvalidOTPCode means the entered code failed the client-side
	// length check (exactly 6 digits). All other validation is
	// server-authoritative.
	ErrInvalidOTPCode = errors.New("guard: code must be exactly 6 digits")

	// ErrUnauthorized means the server returned 401. The stored session
	// token has already been cleared as a side effect.
	ErrUnauthorized = errors.New("guard: unauthorized")

	// ErrNoSession means an operation requiring authentication was
	// attempted with no stored session.
	ErrNoSession = errors.New("guard: no active session")
)

// APIError is a business rejection reported by the server. The message is
// passed through verbatim for display to the guard.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("guard: server rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("guard: server rejected request: %s", e.Message)
}

// AsAPIError returns the wrapped *APIError, or nil if err is not a
// business rejection. Transport failures and sentinel errors return nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
