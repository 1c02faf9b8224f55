package auth

import (
	"context"

	"github.com/honeynil/storefront-api/internal/models"
)

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, user)
}

// PrincipalFromContext returns the principal attached by the middleware.
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalContextKey{}).(*models.User)
	return user, ok && user != nil
}
