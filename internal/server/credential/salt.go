// Package credential implements the leaf primitives of credential
// verification: per-user salt generation and salted password hashing.
package credential

import (
	"crypto/rand"
	"fmt"

	"github.com/avolkovs/cookiegate/internal/common"
)

// SaltSize is the length in bytes of a freshly generated salt.
const SaltSize = 16

// randRead is a test seam for crypto/rand.Read.
var randRead = rand.Read

// NewSalt returns SaltSize cryptographically random bytes. There is no
// fallback source: if the secure generator cannot be read, the returned
// error wraps common.ErrEntropyUnavailable and the caller must abort.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := randRead(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEntropyUnavailable, err)
	}
	return salt, nil
}
