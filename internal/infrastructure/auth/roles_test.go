package auth

import (
	"context"
	"testing"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRoleSet(t *testing.T) {
	var empty RoleSet
	assert.True(t, empty.Unrestricted())
	assert.True(t, empty.Allows(models.RoleCustomer))

	admins := NewRoleSet(models.RoleAdmin)
	assert.False(t, admins.Unrestricted())
	assert.True(t, admins.Allows(models.RoleAdmin))
	assert.False(t, admins.Allows(models.RoleCustomer))

	both := NewRoleSet(models.RoleAdmin, models.RoleCustomer)
	assert.True(t, both.Contains(models.RoleCustomer))
}

func TestNewRoleSet_CopiesInput(t *testing.T) {
	roles := []models.Role{models.RoleAdmin}
	set := NewRoleSet(roles...)
	roles[0] = models.RoleCustomer

	assert.True(t, set.Contains(models.RoleAdmin))
	assert.False(t, set.Contains(models.RoleCustomer))
}

func TestAuthorize(t *testing.T) {
	customer := &models.User{ID: 1, Role: models.RoleCustomer}

	assert.NoError(t, Authorize(RoleSet{}, customer))
	assert.NoError(t, Authorize(NewRoleSet(models.RoleCustomer), customer))
	assert.ErrorIs(t, Authorize(NewRoleSet(models.RoleAdmin), customer), ErrForbidden)
	assert.ErrorIs(t, Authorize(NewRoleSet(models.RoleAdmin), nil), ErrNoCredential)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFromContext(WithPrincipal(context.Background(), nil))
	assert.False(t, ok)

	user := &models.User{ID: 7}
	got, ok := PrincipalFromContext(WithPrincipal(context.Background(), user))
	assert.True(t, ok)
	assert.Same(t, user, got)
}
