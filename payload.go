package guard

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseScanAttempt decodes raw scanned (or manually entered) text into a
// ScanAttempt. The payload must be a JSON object with non-empty
// invitationId and qrCode string fields; any other shape fails with
// ErrMalformedPayload before any network call can be made.
func ParseScanAttempt(raw string) (*ScanAttempt, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedPayload)
	}

	var attempt ScanAttempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if attempt.InvitationID == "" {
		return nil, fmt.Errorf("%w: missing invitationId", ErrMalformedPayload)
	}
	if attempt.QRPayload == "" {
		return nil, fmt.Errorf("%w: missing qrCode", ErrMalformedPayload)
	}
	return &attempt, nil
}

// ValidOTPCode reports whether code passes the client-side check:
// exactly 6 ASCII digits. Expiry, mismatch and retry limits are checked
// by the server only.
func ValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
