package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const defaultBytes = 16

// New mints a random URL-safe token for schools and supervisors. The token
// ends up inside scannable codes, so it must survive URL embedding untouched.
func New() (string, error) {
	buf := make([]byte, defaultBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
