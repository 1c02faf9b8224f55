package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/honeynil/storefront-api/internal/infrastructure/kafka"
	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountService administers user accounts. Every change that affects
// authentication is announced on the account event stream so that principal
// caches everywhere drop the stale entry.
type AccountService interface {
	GetUser(ctx context.Context, id int32) (*models.User, error)
	SetActive(ctx context.Context, id int32, active bool) (*models.User, error)
	UpsertAdmin(ctx context.Context, name, email, password string) (*models.User, error)
	ResetPassword(ctx context.Context, email, password string) (int32, error)
}

// publishTimeout bounds all publish attempts of one change together.
const (
	publishAttempts = 3
	publishTimeout  = 5 * time.Second
)

type accountService struct {
	userRepo       repository.UserRepository
	publisher      kafka.AccountEventPublisher
	logger         *zap.Logger
	hashCost       int
	retryDelay     time.Duration
	publishTimeout time.Duration
}

func NewAccountService(userRepo repository.UserRepository, publisher kafka.AccountEventPublisher, logger *zap.Logger) *accountService {
	return &accountService{
		userRepo:   userRepo,
		publisher:  publisher,
		logger:     logger,
		hashCost:       bcrypt.DefaultCost,
		retryDelay:     500 * time.Millisecond,
		publishTimeout: publishTimeout,
	}
}

func (s *accountService) GetUser(ctx context.Context, id int32) (*models.User, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "GetUser")
	defer span.End()

	user, err := s.userRepo.FindByID(ctx, id, repository.WithHidden(repository.FieldActive))
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}
	return user, nil
}

func (s *accountService) SetActive(ctx context.Context, id int32, active bool) (*models.User, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "SetActive")
	defer span.End()

	if err := s.userRepo.SetActive(ctx, id, active); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "set active failed")
		return nil, err
	}
	s.logger.Info("account status changed", zap.Int32("user_id", id), zap.Bool("active", active))

	s.publish(ctx, models.AccountEvent{Type: models.EventUserStatusChanged, UserID: id, Active: &active})

	return s.userRepo.FindByID(ctx, id, repository.WithHidden(repository.FieldActive))
}

func (s *accountService) hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is required", pkgerrors.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}
	return string(hash), nil
}

// UpsertAdmin creates an active admin account or promotes and reactivates the
// account that already uses email.
func (s *accountService) UpsertAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "UpsertAdmin")
	defer span.End()

	email = normalizeEmail(email)
	if name == "" || email == "" {
		span.SetStatus(codes.Error, "empty name or email")
		return nil, fmt.Errorf("%w: name and email are required", pkgerrors.ErrInvalidInput)
	}
	hash, err := s.hash(password)
	if err != nil {
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, err
	}

	active := true
	user := &models.User{
		Name:         name,
		Email:        email,
		Role:         models.RoleAdmin,
		Active:       &active,
		PasswordHash: hash,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		s.logger.Error("failed to upsert admin", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	s.logger.Info("admin account provisioned", zap.Int32("user_id", user.ID), zap.String("email", email))

	s.publish(ctx, models.AccountEvent{Type: models.EventUserUpserted, UserID: user.ID, Active: &active})
	return user, nil
}

func (s *accountService) ResetPassword(ctx context.Context, email, password string) (int32, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "ResetPassword")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		span.SetStatus(codes.Error, "empty email")
		return 0, fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}
	hash, err := s.hash(password)
	if err != nil {
		span.SetStatus(codes.Error, "password hashing failed")
		return 0, err
	}

	id, err := s.userRepo.UpdatePassword(ctx, email, hash)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			span.RecordError(err)
			s.logger.Error("failed to reset password", zap.String("email", email), zap.Error(err))
		}
		span.SetStatus(codes.Error, "password reset failed")
		return 0, err
	}
	s.logger.Info("password reset", zap.Int32("user_id", id))

	s.publish(ctx, models.AccountEvent{Type: models.EventPasswordReset, UserID: id})
	return id, nil
}

// publish retries a few times within publishTimeout and then gives up with an
// error log. The database change has already happened; remote caches fall
// back to their TTL.
func (s *accountService) publish(ctx context.Context, event models.AccountEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	var err error
retry:
	for attempt := 1; ; attempt++ {
		if err = s.publisher.PublishAccountEvent(ctx, event); err == nil {
			return
		}
		if attempt == publishAttempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	s.logger.Error("failed to publish account event after retries",
		zap.String("type", string(event.Type)),
		zap.Int32("user_id", event.UserID),
		zap.Error(err))
}
