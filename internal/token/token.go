package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the rendered token length: 32 random bytes as lowercase hex.
const Length = 64

// New returns an unguessable tracking token with 256 bits of entropy.
// Tokens are assigned once at order creation and never rotated.
func New() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
