package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// Random returns a URL safe string of bits of random data. Used for session
// ids, CSRF tokens and anything else that must be unguessable.
func Random(bits int) string {
	b := make([]byte, (bits+7)/8)
	// crypto/rand.Read never returns an error since Go 1.24
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
