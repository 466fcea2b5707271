package guard

import (
	"errors"
	"testing"
)

func TestParseScanAttempt_Valid(t *testing.T) {
	attempt, err := ParseScanAttempt(`{"invitationId":"inv1","qrCode":"q1"}`)
	if err != nil {
		t.Fatalf("ParseScanAttempt() error: %v", err)
	}
	if attempt.InvitationID != "inv1" {
		t.Errorf("InvitationID = %q, want %q", attempt.InvitationID, "inv1")
	}
	if attempt.QRPayload != "q1" {
		t.Errorf("QRPayload = %q, want %q", attempt.QRPayload, "q1")
	}
}

func TestParseScanAttempt_IgnoresExtraFields(t *testing.T) {
	attempt, err := ParseScanAttempt(`{"invitationId":"inv1","qrCode":"q1","event":"gala"}`)
	if err != nil {
		t.Fatalf("ParseScanAttempt() error: %v", err)
	}
	if attempt.InvitationID != "inv1" || attempt.QRPayload != "q1" {
		t.Errorf("unexpected attempt: %+v", attempt)
	}
}

func TestParseScanAttempt_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not JSON", "hello world"},
		{"JSON array", `["inv1","q1"]`},
		{"missing invitationId", `{"qrCode":"q1"}`},
		{"missing qrCode", `{"invitationId":"inv1"}`},
		{"empty invitationId", `{"invitationId":"","qrCode":"q1"}`},
		{"empty qrCode", `{"invitationId":"inv1","qrCode":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScanAttempt(tc.raw)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("ParseScanAttempt(%q) = %v, want ErrMalformedPayload", tc.raw, err)
			}
		})
	}
}

func TestValidOTPCode(t *testing.T) {
	valid := []string{"000000", "482913", "999999"}
	for _, code := range valid {
		if !ValidOTPCode(code) {
			t.Errorf("ValidOTPCode(%q) = false, want true", code)
		}
	}

	invalid := []string{"", "12345", "1234567", "12345a", "12 456", "12.456", "１２３４５６"}
	for _, code := range invalid {
		if ValidOTPCode(code) {
			t.Errorf("ValidOTPCode(%q) = true, want false", code)
		}
	}
}
