package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/pkg/crypto"
)

// ========== User Methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Hash password if provided in settings
	if pwd, ok := user.Settings["password"].(string); ok && pwd != "" {
		hash, err := crypto.HashPassword(pwd)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	query := `
        INSERT INTO users (
            id, created_at, updated_at, email, first_name, last_name,
            password_hash, role, is_active, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.FirstName,
		user.LastName, user.PasswordHash, user.Role, user.IsActive, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, first_name, last_name,
               password_hash, role, is_active, last_login_at, settings
        FROM users
        WHERE id = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.Role, &user.IsActive,
		&user.LastLoginAt, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, first_name, last_name,
               password_hash, role, is_active, last_login_at, settings
        FROM users
        WHERE email = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.Role, &user.IsActive,
		&user.LastLoginAt, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
        UPDATE users SET
            updated_at = $2, email = $3, first_name = $4, last_name = $5,
            role = $6, is_active = $7, last_login_at = $8, settings = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FirstName, user.LastName,
		user.Role, user.IsActive, user.LastLoginAt, user.Settings,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUsers lists users
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT id, created_at, updated_at, email, first_name, last_name,
               role, is_active, last_login_at
        FROM users
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
			&user.FirstName, &user.LastName, &user.Role, &user.IsActive,
			&user.LastLoginAt,
		)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, count, rows.Err()
}

// ListOwnerUsers lists users holding an owner-level role
func (s *PostgresStore) ListOwnerUsers(ctx context.Context) ([]*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, first_name, last_name,
               role, is_active, last_login_at
        FROM users
        WHERE role LIKE '%owner%' AND is_active = TRUE
        ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
			&user.FirstName, &user.LastName, &user.Role, &user.IsActive,
			&user.LastLoginAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
