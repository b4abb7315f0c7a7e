package services

import "github.com/keyward-io/keyward/internal/auth"

// PasswordHasher abstracts password hashing so the session manager never
// touches bcrypt directly.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when the password matches the stored hash. Every
	// non-nil error, mismatch or malformed hash, is an authentication
	// failure.
	Verify(hashedPassword, password string) error
}

var _ PasswordHasher = (*auth.BcryptPasswordHasher)(nil)
