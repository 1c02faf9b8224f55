package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresUserRepository(db *sql.DB, logger *zap.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, logger: logger}
}

var _ repository.UserRepository = (*PostgresUserRepository)(nil)

func validateUser(user *models.User) error {
	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: password_hash is required", pkgerrors.ErrInvalidInput)
	}
	if !user.Role.IsValid() {
		return fmt.Errorf("%w: %q", pkgerrors.ErrInvalidRole, user.Role)
	}
	return nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span, finish := instrument(ctx, "user-repository", "CreateUser")
	defer finish(&err)

	if err = validateUser(user); err != nil {
		r.logger.Error("invalid user", zap.String("method", "Create"), zap.Error(err))
		return err
	}
	span.SetAttributes(attribute.String("role", string(user.Role)))

	active := user.Active == nil || *user.Active
	query := `INSERT INTO users (name, email, role, active, password_hash) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Role, active, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			err = pkgerrors.ErrUserAlreadyExists
			r.logger.Warn("user already exists", zap.String("method", "Create"), zap.String("email", user.Email))
			return err
		}
		r.logger.Error("failed to create user", zap.String("method", "Create"), zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.Active = &active
	r.logger.Info("user created", zap.String("method", "Create"), zap.Int32("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func (r *PostgresUserRepository) Upsert(ctx context.Context, user *models.User) (err error) {
	ctx, _, finish := instrument(ctx, "user-repository", "UpsertUser")
	defer finish(&err)

	if err = validateUser(user); err != nil {
		r.logger.Error("invalid user", zap.String("method", "Upsert"), zap.Error(err))
		return err
	}

	active := user.Active == nil || *user.Active
	query := `INSERT INTO users (name, email, role, active, password_hash) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, active = EXCLUDED.active,
		password_hash = EXCLUDED.password_hash, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Role, active, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to upsert user", zap.String("method", "Upsert"), zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	user.Active = &active
	r.logger.Info("user upserted", zap.String("method", "Upsert"), zap.Int32("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

// selectUser builds the column list for proj and the matching scan targets.
func selectUser(proj repository.Projection, where string) (string, *models.User, *bool, []any) {
	var (
		user   models.User
		active bool
	)
	columns := []string{"id", "name", "email", "role", "created_at", "updated_at"}
	dest := []any{&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt}
	if proj.Includes(repository.FieldActive) {
		columns = append(columns, "active")
		dest = append(dest, &active)
	}
	if proj.Includes(repository.FieldPasswordHash) {
		columns = append(columns, "password_hash")
		dest = append(dest, &user.PasswordHash)
	}
	query := "SELECT " + strings.Join(columns, ", ") + " FROM users WHERE " + where
	return query, &user, &active, dest
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id int32, proj repository.Projection) (_ *models.User, err error) {
	ctx, span, finish := instrument(ctx, "user-repository", "FindUserByID")
	defer finish(&err)
	span.SetAttributes(attribute.Int("user_id", int(id)))

	query, user, active, dest := selectUser(proj, "id = $1")
	err = r.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrUserNotFound
		r.logger.Debug("user not found", zap.String("method", "FindByID"), zap.Int32("user_id", id))
		return nil, err
	}
	if err != nil {
		r.logger.Error("failed to get user by id", zap.String("method", "FindByID"), zap.Int32("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	if proj.Includes(repository.FieldActive) {
		user.Active = active
	}
	return user, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string, proj repository.Projection) (_ *models.User, err error) {
	ctx, _, finish := instrument(ctx, "user-repository", "FindUserByEmail")
	defer finish(&err)

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	query, user, active, dest := selectUser(proj, "email = $1")
	err = r.db.QueryRowContext(ctx, query, email).Scan(dest...)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		err = pkgerrors.ErrUserNotFound
		return nil, err
	case err != nil:
		r.logger.Error("failed to get user by email", zap.String("method", "FindByEmail"), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if proj.Includes(repository.FieldActive) {
		user.Active = active
	}
	return user, nil
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, id int32, active bool) (err error) {
	ctx, span, finish := instrument(ctx, "user-repository", "SetUserActive")
	defer finish(&err)
	span.SetAttributes(attribute.Int("user_id", int(id)), attribute.Bool("active", active))

	res, err := r.db.ExecContext(ctx, `UPDATE users SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		r.logger.Error("failed to update active flag", zap.String("method", "SetActive"), zap.Int32("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to update active flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrUserNotFound
		return err
	}

	r.logger.Info("user active flag updated", zap.String("method", "SetActive"), zap.Int32("user_id", id), zap.Bool("active", active))
	return nil
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (_ int32, err error) {
	ctx, _, finish := instrument(ctx, "user-repository", "UpdatePassword")
	defer finish(&err)

	if email == "" || passwordHash == "" {
		err = fmt.Errorf("%w: email and password_hash are required", pkgerrors.ErrInvalidInput)
		return 0, err
	}

	var id int32
	err = r.db.QueryRowContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE email = $2 RETURNING id`, passwordHash, email).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrUserNotFound
		return 0, err
	}
	if err != nil {
		r.logger.Error("failed to update password", zap.String("method", "UpdatePassword"), zap.Error(err))
		return 0, fmt.Errorf("failed to update password: %w", err)
	}

	r.logger.Info("password updated", zap.String("method", "UpdatePassword"), zap.Int32("user_id", id))
	return id, nil
}
