package domain

import "time"

// AuthProvider identifies where an identity's credentials originate.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
	ProviderGitHub AuthProvider = "GITHUB"
)

// User represents an identity capable of authenticating.
//
// PasswordHash is empty for federated-only accounts; such accounts can never
// pass a password login. The auth core never hard-deletes users, it only
// flips IsActive.
type User struct {
	ID              string       `bson:"_id,omitempty"`
	Email           string       `bson:"email"`
	PasswordHash    string       `bson:"password_hash,omitempty"`
	FirstName       string       `bson:"first_name,omitempty"`
	LastName        string       `bson:"last_name,omitempty"`
	AvatarURL       string       `bson:"avatar_url,omitempty"`
	Provider        AuthProvider `bson:"provider"`
	ProviderID      string       `bson:"provider_id,omitempty"`
	IsActive        bool         `bson:"is_active"`
	IsEmailVerified bool         `bson:"is_email_verified"`
	Roles           []string     `bson:"roles"`
	CreatedAt       time.Time    `bson:"created_at"`
	UpdatedAt       time.Time    `bson:"updated_at"`
	LastLoginAt     *time.Time   `bson:"last_login_at,omitempty"`
}

// HasRole reports whether the user carries the given role name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
