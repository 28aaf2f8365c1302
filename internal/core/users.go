package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civreg/civreg/internal/auth"
	"github.com/civreg/civreg/internal/logging"
)

// User is an API account. The password hash never leaves this package.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	hashedPassword string
}

// NewUserParams holds the fields needed to create a user.
type NewUserParams struct {
	Email       string
	Password    string
	FullName    string
	IsActive    bool
	IsSuperuser bool
}

// UpdateUserParams holds optional user updates; nil fields are left
// unchanged.
type UpdateUserParams struct {
	Email       *string
	Password    *string
	FullName    *string
	IsActive    *bool
	IsSuperuser *bool
}

const userColumns = `id, email, hashed_password, full_name, is_active,
	is_superuser, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		fullName *string
	)
	err := row.Scan(&u.ID, &u.Email, &u.hashedPassword, &fullName,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	u.FullName = deref(fullName)
	return u, nil
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, params NewUserParams) (User, error) {
	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, full_name, is_active, is_superuser)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		params.Email, hash, textOrNil(params.FullName),
		params.IsActive, params.IsSuperuser,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail fetches a user by email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns users ordered by creation time.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil fields of params to a user.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	email := current.Email
	if params.Email != nil {
		email = *params.Email
	}
	fullName := current.FullName
	if params.FullName != nil {
		fullName = *params.FullName
	}
	isActive := current.IsActive
	if params.IsActive != nil {
		isActive = *params.IsActive
	}
	isSuperuser := current.IsSuperuser
	if params.IsSuperuser != nil {
		isSuperuser = *params.IsSuperuser
	}
	hash := current.hashedPassword
	if params.Password != nil {
		hash, err = auth.HashPassword(*params.Password)
		if err != nil {
			return User{}, err
		}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users SET
			email = $2, hashed_password = $3, full_name = $4,
			is_active = $5, is_superuser = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, email, hash, textOrNil(fullName), isActive, isSuperuser,
	)

	user, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Authenticate verifies an email/password pair and returns the user.
// Inactive users cannot authenticate.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == ErrNotFound {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if !auth.CheckPassword(user.hashedPassword, password) {
		return User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureFirstSuperuser seeds the configured superuser account when no
// users exist yet. A no-op when seeding is not configured or the table
// already has users.
func (s *Service) EnsureFirstSuperuser(ctx context.Context) error {
	email := s.cfg.Auth.FirstSuperuserEmail
	if email == "" {
		return nil
	}

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.CreateUser(ctx, NewUserParams{
		Email:       email,
		Password:    s.cfg.Auth.FirstSuperuserPassword,
		FullName:    "Administrator",
		IsActive:    true,
		IsSuperuser: true,
	})
	if err == ErrEmailTaken {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed first superuser: %w", err)
	}

	logging.FromContext(ctx).Info("seeded first superuser", "email", email)
	return nil
}
