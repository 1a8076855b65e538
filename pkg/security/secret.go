// Package security generates credentials handed out to integrators.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// WebhookSecretPrefix marks supplier webhook signing secrets.
const WebhookSecretPrefix = "whsec_"

const minSecretBytes = 16

// GenerateSecret returns prefix followed by n random bytes in lower-case hex.
func GenerateSecret(prefix string, n int) (string, error) {
	if n < minSecretBytes {
		return "", fmt.Errorf("secret needs at least %d bytes, got %d", minSecretBytes, n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// GenerateWebhookSecret returns a new supplier signing secret.
func GenerateWebhookSecret() (string, error) {
	return GenerateSecret(WebhookSecretPrefix, 32)
}

// MaskSecret keeps the prefix and the last four characters so a secret can
// be recognised in logs and admin views without being usable.
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	visiblePrefix := ""
	if strings.HasPrefix(secret, WebhookSecretPrefix) {
		visiblePrefix = WebhookSecretPrefix
	}
	hidden := len(secret) - len(visiblePrefix) - 4
	if hidden < 0 {
		hidden = 0
	}
	return visiblePrefix + strings.Repeat("*", hidden) + secret[len(secret)-4:]
}
