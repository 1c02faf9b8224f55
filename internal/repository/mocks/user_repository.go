// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	"github.com/stretchr/testify/mock"
)

type UserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) FindByID(ctx context.Context, id int32, proj repository.Projection) (*models.User, error) {
	args := m.Called(ctx, id, proj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string, proj repository.Projection) (*models.User, error) {
	args := m.Called(ctx, email, proj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) SetActive(ctx context.Context, id int32, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (int32, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.Get(0).(int32), args.Error(1)
}

type ProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func (m *ProductRepository) GetByID(ctx context.Context, id int32) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}
