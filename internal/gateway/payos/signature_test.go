package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignOrdersKeysAlphabetically(t *testing.T) {
	key := "test-checksum-key"
	params := map[string]string{
		"orderCode": "20251007001",
		"amount":    "20000",
		"returnUrl": "http://localhost/return",
		"cancelUrl": "http://localhost/cancel",
		"description": "dinner",
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte("amount=20000&cancelUrl=http://localhost/cancel&description=dinner&orderCode=20251007001&returnUrl=http://localhost/return"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign(params, key))
}

func TestSignDeterministic(t *testing.T) {
	params := map[string]string{"orderCode": "1", "amount": "100", "reason": "test"}
	assert.Equal(t, Sign(params, "k"), Sign(params, "k"))
	assert.NotEqual(t, Sign(params, "k"), Sign(params, "other"))
}

func TestVerifySignature(t *testing.T) {
	key := "webhook-key"
	body := []byte(`{"code":"00","data":{"orderCode":42,"amount":20000}}`)

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, signature, key))
	assert.False(t, VerifySignature(body, signature, "wrong-key"))
	assert.False(t, VerifySignature([]byte(`tampered`), signature, key))
	assert.False(t, VerifySignature(body, "", key))
}
