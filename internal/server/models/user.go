package models

import "time"

// User is a stored credential record, keyed by exact, case-sensitive
// username. Salt is generated once when the record is created; a password
// change replaces salt and digest together, never one without the other.
type User struct {
	ID           string
	Username     string
	Role         string
	Salt         []byte
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the outcome of successful authentication. It carries no
// secret material and is what gets embedded into session claims.
type Identity struct {
	Username string
	Role     string
}

// Profile is the public view of a user record, safe to return to clients.
type Profile struct {
	Username  string
	Role      string
	CreatedAt time.Time
}
