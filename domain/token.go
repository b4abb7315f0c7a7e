package domain

import "time"

// RefreshToken is the durable record backing an opaque refresh-token value.
//
// A record is never updated in place: a successful refresh deletes the
// consumed record and inserts a fresh one (rotation). At most one live
// record exists per token value.
type RefreshToken struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Expired reports whether the record is logically dead at the given instant.
// Expired records are treated the same as absent ones even while they still
// physically exist in the store.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// AccessClaims is the decoded claim set of a verified access token. No
// server-side record backs it, so an access token cannot be revoked before
// its natural expiry.
type AccessClaims struct {
	UserID    string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the claim set carries the given role name.
func (c *AccessClaims) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// TokenPair is returned by every successful session flow. Callers must treat
// both values as opaque bearer strings.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ExternalProfile is the single normalized identity shape handed to the
// session manager after a federated provider has authenticated the user.
// ProviderUserID is the provider's stable subject identifier.
type ExternalProfile struct {
	Provider       AuthProvider
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	AvatarURL      string
}
