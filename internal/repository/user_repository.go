package repository

import (
	"context"

	"github.com/honeynil/storefront-api/internal/models"
)

// Field names a user column that default projections leave out.
type Field uint8

const (
	FieldActive Field = 1 << iota
	FieldPasswordHash
)

// Projection selects which hidden fields a lookup returns. The zero value is
// the default projection.
type Projection struct {
	hidden Field
}

func WithHidden(fields ...Field) Projection {
	var p Projection
	for _, f := range fields {
		p.hidden |= f
	}
	return p
}

func (p Projection) Includes(f Field) bool {
	return p.hidden&f != 0
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// Upsert inserts the user or replaces name, role, active flag and password
	// hash of the existing account with the same email.
	Upsert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int32, proj Projection) (*models.User, error)
	FindByEmail(ctx context.Context, email string, proj Projection) (*models.User, error)
	SetActive(ctx context.Context, id int32, active bool) error
	UpdatePassword(ctx context.Context, email, passwordHash string) (int32, error)
}
