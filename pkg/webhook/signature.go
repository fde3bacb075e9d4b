// Package webhook verifies and decodes telephony platform webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the header carrying the HMAC signature.
const SignatureHeader = "X-GoTo-Signature"

// ComputeSignature returns the hex HMAC-SHA256 of body keyed by secret.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a supplied signature against the raw request body.
// It must be called on the raw bytes before any parsing; it never errors
// and returns false for an empty signature.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := ComputeSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
