package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	"github.com/honeynil/storefront-api/internal/repository/postgres"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRepo(t *testing.T) (*postgres.PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewPostgresUserRepository(db, zap.NewNop()), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("NilUser", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidRole", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		err := repo.Create(ctx, &models.User{Email: "a@b.c", PasswordHash: "hash", Role: "root"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidRole)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingEmail", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		err := repo.Create(ctx, &models.User{PasswordHash: "hash", Role: models.RoleCustomer})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "email is required")
	})

	t.Run("UserAlreadyExists", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		user := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", Role: models.RoleCustomer}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(user.Name, user.Email, user.Role, true, user.PasswordHash).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		now := time.Now().UTC()
		user := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", Role: models.RoleCustomer}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (name, email, role, active, password_hash) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`)).
			WithArgs(user.Name, user.Email, user.Role, true, user.PasswordHash).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

		err := repo.Create(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int32(7), user.ID)
		assert.True(t, user.IsActive())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		user := &models.User{Email: "ann@example.com", PasswordHash: "hash", Role: models.RoleAdmin}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(ctx, user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		now := time.Now().UTC()
		inactive := false
		user := &models.User{Name: "Root", Email: "root@example.com", PasswordHash: "hash", Role: models.RoleAdmin, Active: &inactive}
		mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (email) DO UPDATE`)).
			WithArgs(user.Name, user.Email, user.Role, false, user.PasswordHash).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

		require.NoError(t, repo.Upsert(ctx, user))
		assert.Equal(t, int32(1), user.ID)
		assert.False(t, user.IsActive())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingPasswordHash", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		err := repo.Upsert(ctx, &models.User{Email: "root@example.com", Role: models.RoleAdmin})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestPostgresUserRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("DefaultProjectionOmitsActive", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, role, created_at, updated_at FROM users WHERE id = $1`)).
			WithArgs(int32(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "updated_at"}).
				AddRow(42, "Ann", "ann@example.com", "customer", now, now))

		user, err := repo.FindByID(ctx, 42, repository.Projection{})
		require.NoError(t, err)
		assert.Equal(t, int32(42), user.ID)
		assert.Equal(t, models.RoleCustomer, user.Role)
		assert.Nil(t, user.Active)
		assert.Empty(t, user.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WithHiddenActive", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, role, created_at, updated_at, active FROM users WHERE id = $1`)).
			WithArgs(int32(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "updated_at", "active"}).
				AddRow(42, "Ann", "ann@example.com", "customer", now, now, false))

		user, err := repo.FindByID(ctx, 42, repository.WithHidden(repository.FieldActive))
		require.NoError(t, err)
		require.NotNil(t, user.Active)
		assert.False(t, *user.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
			WithArgs(int32(1)).
			WillReturnError(sql.ErrNoRows)

		user, err := repo.FindByID(ctx, 1, repository.WithHidden(repository.FieldActive))
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
			WithArgs(int32(1)).
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.FindByID(ctx, 1, repository.Projection{})
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get user by id")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("WithPasswordHashAndActive", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, role, created_at, updated_at, active, password_hash FROM users WHERE email = $1`)).
			WithArgs("ann@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "updated_at", "active", "password_hash"}).
				AddRow(3, "Ann", "ann@example.com", "admin", now, now, true, "hash"))

		user, err := repo.FindByEmail(ctx, "ann@example.com", repository.WithHidden(repository.FieldActive, repository.FieldPasswordHash))
		require.NoError(t, err)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.True(t, user.IsActive())
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyEmail", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		user, err := repo.FindByEmail(ctx, "", repository.Projection{})
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByEmail(ctx, "nobody@example.com", repository.Projection{})
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	})
}

func TestPostgresUserRepository_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET active = $1, updated_at = NOW() WHERE id = $2`)).
			WithArgs(false, int32(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetActive(ctx, 5, false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET active`)).
			WithArgs(true, int32(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetActive(ctx, 5, true), pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE email = $2 RETURNING id`)).
			WithArgs("newhash", "ann@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		id, err := repo.UpdatePassword(ctx, "ann@example.com", "newhash")
		require.NoError(t, err)
		assert.Equal(t, int32(9), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET password_hash`)).
			WithArgs("newhash", "ghost@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdatePassword(ctx, "ghost@example.com", "newhash")
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		repo, _ := newUserRepo(t)
		_, err := repo.UpdatePassword(ctx, "", "hash")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
