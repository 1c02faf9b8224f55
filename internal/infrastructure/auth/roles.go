package auth

import (
	"github.com/honeynil/storefront-api/internal/models"
)

// RoleSet is the set of roles a route admits. The zero value admits every
// authenticated principal.
type RoleSet struct {
	roles map[models.Role]struct{}
}

func NewRoleSet(roles ...models.Role) RoleSet {
	if len(roles) == 0 {
		return RoleSet{}
	}
	m := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		m[r] = struct{}{}
	}
	return RoleSet{roles: m}
}

// Unrestricted reports whether the set admits any role.
func (s RoleSet) Unrestricted() bool {
	return len(s.roles) == 0
}

func (s RoleSet) Contains(role models.Role) bool {
	_, ok := s.roles[role]
	return ok
}

func (s RoleSet) Allows(role models.Role) bool {
	return s.Unrestricted() || s.Contains(role)
}

// Authorize checks an already resolved principal against set.
func Authorize(set RoleSet, user *models.User) error {
	if user == nil {
		return newError(KindNoCredential, nil)
	}
	if !set.Allows(user.Role) {
		return newError(KindForbidden, nil)
	}
	return nil
}
