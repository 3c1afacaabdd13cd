package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the hex HMAC-SHA256 signature over the request params
// joined as k=v&... with keys in alphabetical order.
func Sign(params map[string]string, checksumKey string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return hmacHex([]byte(strings.Join(pairs, "&")), checksumKey)
}

// VerifySignature checks a webhook signature against the raw request
// body. Comparison is constant time.
func VerifySignature(body []byte, signature, checksumKey string) bool {
	expected := hmacHex(body, checksumKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func hmacHex(data []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
