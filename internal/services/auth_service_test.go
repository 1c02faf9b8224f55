package service

import (
	"context"
	"testing"
	"time"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	"github.com/honeynil/storefront-api/internal/repository/mocks"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var loginProjection = repository.WithHidden(repository.FieldActive, repository.FieldPasswordHash)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	issuer := &fakeIssuer{token: "signed.jwt.token", ttl: 90 * time.Minute}

	t.Run("successful login", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "jane@example.com", loginProjection).Return(&models.User{
			ID: 1, Email: "jane@example.com", Role: models.RoleCustomer,
			Active: boolPtr(true), PasswordHash: hashed(t, "s3cret"),
		}, nil)

		res, err := svc.Login(ctx, "  Jane@Example.com ", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "signed.jwt.token", res.Token)
		assert.Equal(t, 90*time.Minute, res.ExpiresIn)
		userRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "jane@example.com", loginProjection).Return(&models.User{
			ID: 1, Active: boolPtr(true), PasswordHash: hashed(t, "s3cret"),
		}, nil)

		res, err := svc.Login(ctx, "jane@example.com", "wrong")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		assert.Nil(t, res)
	})

	t.Run("unknown email", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "nobody@example.com", loginProjection).Return(nil, pkgerrors.ErrUserNotFound)

		_, err := svc.Login(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "jane@example.com", loginProjection).Return(&models.User{
			ID: 1, Active: boolPtr(false), PasswordHash: hashed(t, "s3cret"),
		}, nil)

		_, err := svc.Login(ctx, "jane@example.com", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrAccountInactive)
	})

	t.Run("empty input", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())

		_, err := svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		userRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, issuer, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "jane@example.com", loginProjection).Return(nil, errBoom)

		_, err := svc.Login(ctx, "jane@example.com", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})

	t.Run("issuer failure", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := NewAuthService(userRepo, &fakeIssuer{err: errBoom}, zap.NewNop())
		userRepo.On("FindByEmail", mock.Anything, "jane@example.com", loginProjection).Return(&models.User{
			ID: 1, Active: boolPtr(true), PasswordHash: hashed(t, "s3cret"),
		}, nil)

		_, err := svc.Login(ctx, "jane@example.com", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})
}

func TestAuthService_UnknownEmailStillComparesPassword(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := NewAuthService(userRepo, &fakeIssuer{token: "tok", ttl: time.Minute}, zap.NewNop())

	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}
	userRepo.On("FindByEmail", mock.Anything, "nobody@example.com", loginProjection).Return(nil, pkgerrors.ErrUserNotFound)

	_, err := svc.Login(context.Background(), "nobody@example.com", "guess")

	assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
	require.Len(t, compared, 1)
	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
