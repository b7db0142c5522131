package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/domain/auth"
)

// Compile-time check that UserRepo implements auth.Repository.
var _ auth.Repository = (*UserRepo)(nil)

var userColumns = []string{
	"id", "email", "name", "role", "password_hash", "is_active",
	"last_login_at", "failed_login_attempts", "locked_until",
	"created_at", "updated_at",
}

// UserRepo stores panel users.
type UserRepo struct {
	txManager *TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

func (r *UserRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	sql, args, err := r.builder().
		Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.IsActive,
			user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
			user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewDuplicate("user", "email", user.Email)
		}
		return apperror.NewDatabase(err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": userID}, userID.String())
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Expr("lower(email) = lower(?)", email), email)
}

func (r *UserRepo) getOne(ctx context.Context, where any, ref string) (*auth.User, error) {
	sql, args, err := r.builder().
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var user auth.User
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", ref)
		}
		return nil, apperror.NewDatabase(err)
	}
	return &user, nil
}

// Update writes user data back.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	sql, args, err := r.builder().
		Update("users").
		Set("email", user.Email).
		Set("name", user.Name).
		Set("role", user.Role).
		Set("password_hash", user.PasswordHash).
		Set("is_active", user.IsActive).
		Set("last_login_at", user.LastLoginAt).
		Set("failed_login_attempts", user.FailedLoginAttempts).
		Set("locked_until", user.LockedUntil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}

// Delete removes a user.
func (r *UserRepo) Delete(ctx context.Context, userID id.ID) error {
	sql, args, err := r.builder().
		Delete("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}
	return nil
}

// List retrieves all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]auth.User, error) {
	sql, args, err := r.builder().
		Select(userColumns...).
		From("users").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select users: %w", err)
	}

	var users []auth.User
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &users, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}
	return users, nil
}

// Exists checks if an email is taken.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))", email).
		Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabase(err)
	}
	return exists, nil
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, "SELECT count(*) FROM users").
		Scan(&count)
	if err != nil {
		return 0, apperror.NewDatabase(err)
	}
	return count, nil
}
