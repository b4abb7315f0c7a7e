package domain

import "context"

// UserRepository is the identity directory. Implementations must treat email
// lookups case-insensitively and report duplicate emails on create as a
// conflict.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// AssignRole grants roleName to the user. Assigning a role the user
	// already holds is a conflict; a missing user or role is not found.
	AssignRole(ctx context.Context, userID, roleName string) error
	// RemoveRole revokes roleName from the user. Removing a role the user
	// does not hold is not found.
	RemoveRole(ctx context.Context, userID, roleName string) error
}

// RoleRepository holds the role reference data.
type RoleRepository interface {
	CreateRole(ctx context.Context, role *Role) error
	GetRoleByID(ctx context.Context, id string) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	// SeedDefaultRoles creates any of the default roles that do not exist
	// yet. It is idempotent.
	SeedDefaultRoles(ctx context.Context) error
}

// RefreshTokenRepository stores opaque refresh-token records.
//
// DeleteByValue is the rotation serialization point: when several callers
// race to consume the same value, exactly one of them observes true.
type RefreshTokenRepository interface {
	// Store persists a new record. A duplicate token value is a conflict.
	Store(ctx context.Context, token *RefreshToken) error
	// GetByValue returns the live record for the value. Absent and expired
	// records are both reported as not found.
	GetByValue(ctx context.Context, value string) (*RefreshToken, error)
	// DeleteByValue removes the record atomically, reporting whether this
	// call was the one that removed it.
	DeleteByValue(ctx context.Context, value string) (bool, error)
	// DeleteAllForUser removes every record owned by the user.
	DeleteAllForUser(ctx context.Context, userID string) error
	// DeleteExpired physically purges expired records. Logical expiry is
	// already enforced by GetByValue, so this is housekeeping only.
	DeleteExpired(ctx context.Context) error
}
