package credential

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"

	"github.com/avolkovs/cookiegate/internal/common"
)

// Argon2id parameters. Changing them invalidates every stored digest, so
// treat them as part of the storage format.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Hash derives a hex-encoded Argon2id digest from the password and salt.
// The same (password, salt) pair always yields the same digest.
// Empty passwords and empty salts are rejected with common.ErrInvalidInput.
func Hash(password string, salt []byte) (string, error) {
	if password == "" || len(salt) == 0 {
		return "", common.ErrInvalidInput
	}
	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(digest), nil
}

// Check hashes the candidate password with the stored salt and compares the
// result against the stored digest in constant time. This is the only
// supported way to verify a password.
func Check(storedDigest, password string, salt []byte) (bool, error) {
	digest, err := Hash(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedDigest)) == 1, nil
}
