package rbac

import (
	"context"

	"github.com/keyward-io/keyward/domain"
)

// HasAnyRole reports whether the held roles intersect the required set.
// An empty required set allows any authenticated caller.
func HasAnyRole(held []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range held {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ExpandPermissions resolves the held role names against the role directory
// and returns the union of their permission strings. Unknown role names are
// skipped; a stale claim naming a deleted role simply grants nothing.
func ExpandPermissions(ctx context.Context, roles domain.RoleRepository, held []string) ([]string, error) {
	seen := make(map[string]bool)
	var perms []string
	for _, name := range held {
		role, err := roles.GetRoleByName(ctx, name)
		if err != nil {
			continue
		}
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	return perms, nil
}

// HasPermission checks if a list of roles grants a specific permission,
// resolving through the role directory.
func HasPermission(ctx context.Context, roles domain.RoleRepository, held []string, requiredPermission string) bool {
	perms, _ := ExpandPermissions(ctx, roles, held)
	for _, p := range perms {
		if p == requiredPermission {
			return true
		}
	}
	return false
}
