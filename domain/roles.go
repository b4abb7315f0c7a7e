package domain

import "time"

// Standard role names. Roles are reference data provisioned at deploy time
// (see RoleRepository.SeedDefaultRoles); the auth core only assigns the
// default role at registration.
const (
	RoleAdmin     = "ADMIN"
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
)

// Role is a named bundle of permission strings grantable to a user.
type Role struct {
	ID          string    `bson:"_id,omitempty"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Permissions []string  `bson:"permissions"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// DefaultRoles returns the reference role set used to seed a fresh
// deployment.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			Description: "Administrator with full access",
			Permissions: []string{
				"user:read", "user:write", "user:delete",
				"role:read", "role:write", "role:delete",
			},
		},
		{
			Name:        RoleUser,
			Description: "Regular user with basic access",
			Permissions: []string{"user:read"},
		},
		{
			Name:        RoleModerator,
			Description: "Moderator with elevated access",
			Permissions: []string{"user:read", "user:write"},
		},
	}
}
