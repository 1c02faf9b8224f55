package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int32) (string, time.Time, error)
	TTL() time.Duration
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	logger   *zap.Logger
	compare  func(hash, password []byte) error
}

func NewAuthService(userRepo repository.UserRepository, issuer TokenIssuer, logger *zap.Logger) *authService {
	return &authService{
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// dummyPasswordHash is compared against on unknown emails so that both
// branches of Login cost one bcrypt comparison at the default cost.
func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-unknown-account"), bcrypt.DefaultCost)
	})
	return dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := otel.Tracer("auth-service").Start(ctx, "Login")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		span.SetStatus(codes.Error, "empty email or password")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, email,
		repository.WithHidden(repository.FieldActive, repository.FieldPasswordHash))
	if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		_ = s.compare(dummyPasswordHash(), []byte(password))
		span.SetStatus(codes.Error, "unknown email")
		s.logger.Info("login with unknown email", zap.String("email", email))
		return nil, pkgerrors.ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		s.logger.Error("failed to load user for login", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to load user", pkgerrors.ErrInternal)
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		s.logger.Info("invalid password", zap.Int32("user_id", user.ID))
		return nil, pkgerrors.ErrInvalidCredentials
	}

	if !user.IsActive() {
		span.SetStatus(codes.Error, "account inactive")
		s.logger.Info("login to deactivated account", zap.Int32("user_id", user.ID))
		return nil, pkgerrors.ErrAccountInactive
	}

	token, expiresAt, err := s.issuer.Issue(user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		s.logger.Error("failed to issue token", zap.Int32("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to issue token", pkgerrors.ErrInternal)
	}

	s.logger.Info("user logged in", zap.Int32("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, ExpiresIn: s.issuer.TTL()}, nil
}
