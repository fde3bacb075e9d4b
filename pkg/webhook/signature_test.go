package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"event_type":"call.ended","data":{"call_id":"abc-123"}}`)
	secret := "test-secret"

	sig := ComputeSignature(body, secret)
	assert.True(t, VerifySignature(body, sig, secret))
}

func TestVerifySignature_EmptySignature(t *testing.T) {
	body := []byte(`{}`)
	assert.False(t, VerifySignature(body, "", "secret"))
}

func TestVerifySignature_WrongSignature(t *testing.T) {
	body := []byte(`{"event_type":"call.ended"}`)
	assert.False(t, VerifySignature(body, "deadbeef", "secret"))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"event_type":"call.ended"}`)
	sig := ComputeSignature(body, "secret-a")
	assert.False(t, VerifySignature(body, sig, "secret-b"))
}

func TestVerifySignature_MutatedBody(t *testing.T) {
	body := []byte(`{"event_type":"call.ended","data":{"call_id":"abc-123"}}`)
	sig := ComputeSignature(body, "secret")

	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01

		assert.False(t, VerifySignature(mutated, sig, "secret"), "mutation at byte %d validated", i)
	}
}
