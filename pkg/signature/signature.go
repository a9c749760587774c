// Package signature signs and verifies webhook payloads with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissing   = errors.New("signature missing")
	ErrMalformed = errors.New("signature is not hex")
	ErrMismatch  = errors.New("signature mismatch")
)

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks header against the HMAC of the exact payload bytes. The
// comparison is constant-time. Hex case is ignored.
func Verify(secret, payload []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissing
	}
	got, err := hex.DecodeString(header)
	if err != nil {
		return ErrMalformed
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrMismatch
	}
	return nil
}
