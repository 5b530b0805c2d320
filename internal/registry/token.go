package registry

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes sizes the random share token. 12 bytes of entropy is far above
// the minimum required to make collisions and guessing negligible, and keeps
// the rendered link short.
const tokenBytes = 12

// NewToken returns a URL-safe, unguessable share token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
