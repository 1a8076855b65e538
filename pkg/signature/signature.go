// Package signature signs and verifies supplier webhook payloads.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HeaderName carries the signature on inbound supplier webhooks.
const HeaderName = "x-webhook-signature"

const scheme = "sha256="

// Sign returns the header value for body: "sha256=" followed by the lower-case
// hex HMAC-SHA256 of the exact bytes.
func Sign(body []byte, secret string) string {
	return scheme + hex.EncodeToString(digest(body, secret))
}

// Verify reports whether presented is byte-for-byte the signature of body
// under secret. Only the exact "sha256=<lower-case hex>" form matches.
func Verify(body []byte, presented, secret string) bool {
	if secret == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(presented), []byte(Sign(body, secret)))
}

func digest(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
