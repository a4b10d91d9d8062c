package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
)

// ========== Use-Case Mapping Methods ==========

// CreateUseCaseMapping creates a new use-case mapping
func (s *PostgresStore) CreateUseCaseMapping(ctx context.Context, mapping *models.UseCaseMapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}

	now := time.Now()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	query := `
        INSERT INTO use_case_mappings (
            id, created_at, updated_at, name, description, plan_prefix
        ) VALUES (
            $1, $2, $3, $4, $5, $6
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		mapping.ID, mapping.CreatedAt, mapping.UpdatedAt, mapping.Name,
		mapping.Description, mapping.PlanPrefix,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// ListUseCaseMappings lists use-case mappings in insertion order.
// Resolution relies on this ordering: first match wins.
func (s *PostgresStore) ListUseCaseMappings(ctx context.Context) ([]*models.UseCaseMapping, error) {
	query := `
        SELECT id, created_at, updated_at, name, description, plan_prefix
        FROM use_case_mappings
        ORDER BY created_at ASC, id ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*models.UseCaseMapping
	for rows.Next() {
		mapping := &models.UseCaseMapping{}
		err := rows.Scan(
			&mapping.ID, &mapping.CreatedAt, &mapping.UpdatedAt,
			&mapping.Name, &mapping.Description, &mapping.PlanPrefix,
		)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

// DeleteUseCaseMapping deletes a use-case mapping
func (s *PostgresStore) DeleteUseCaseMapping(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM use_case_mappings WHERE id = $1", id)
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

// ========== Plan-Profile Mapping Methods ==========

// CreatePlanProfileMapping creates a new plan-profile mapping
func (s *PostgresStore) CreatePlanProfileMapping(ctx context.Context, mapping *models.PlanProfileMapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}

	now := time.Now()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	query := `
        INSERT INTO plan_profile_mappings (
            id, created_at, updated_at, plan_keyword, profile_name
        ) VALUES (
            $1, $2, $3, $4, $5
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		mapping.ID, mapping.CreatedAt, mapping.UpdatedAt,
		mapping.PlanKeyword, mapping.ProfileName,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// ListPlanProfileMappings lists plan-profile mappings in insertion order
func (s *PostgresStore) ListPlanProfileMappings(ctx context.Context) ([]*models.PlanProfileMapping, error) {
	query := `
        SELECT id, created_at, updated_at, plan_keyword, profile_name
        FROM plan_profile_mappings
        ORDER BY created_at ASC, id ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*models.PlanProfileMapping
	for rows.Next() {
		mapping := &models.PlanProfileMapping{}
		err := rows.Scan(
			&mapping.ID, &mapping.CreatedAt, &mapping.UpdatedAt,
			&mapping.PlanKeyword, &mapping.ProfileName,
		)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

// DeletePlanProfileMapping deletes a plan-profile mapping
func (s *PostgresStore) DeletePlanProfileMapping(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM plan_profile_mappings WHERE id = $1", id)
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

// ========== Device Profile Methods ==========

// UpsertDeviceProfile inserts or updates a device profile keyed on its
// external profile id
func (s *PostgresStore) UpsertDeviceProfile(ctx context.Context, profile *models.DeviceProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `
        INSERT INTO device_profiles (
            id, created_at, updated_at, profile_id, name, description, is_default
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        )
        ON CONFLICT (profile_id) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            name = EXCLUDED.name,
            description = EXCLUDED.description`

	_, err := s.getDB().ExecContext(ctx, query,
		profile.ID, profile.CreatedAt, profile.UpdatedAt, profile.ProfileID,
		profile.Name, profile.Description, profile.IsDefault,
	)

	return err
}

// GetDeviceProfileByName gets a device profile by display name
func (s *PostgresStore) GetDeviceProfileByName(ctx context.Context, name string) (*models.DeviceProfile, error) {
	query := `
        SELECT id, created_at, updated_at, profile_id, name, description, is_default
        FROM device_profiles
        WHERE name = $1
        ORDER BY created_at ASC
        LIMIT 1`

	profile := &models.DeviceProfile{}
	err := s.getDB().QueryRowContext(ctx, query, name).Scan(
		&profile.ID, &profile.CreatedAt, &profile.UpdatedAt,
		&profile.ProfileID, &profile.Name, &profile.Description,
		&profile.IsDefault,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return profile, err
}

// GetDefaultDeviceProfile gets the profile flagged as default
func (s *PostgresStore) GetDefaultDeviceProfile(ctx context.Context) (*models.DeviceProfile, error) {
	query := `
        SELECT id, created_at, updated_at, profile_id, name, description, is_default
        FROM device_profiles
        WHERE is_default = TRUE
        ORDER BY created_at ASC
        LIMIT 1`

	profile := &models.DeviceProfile{}
	err := s.getDB().QueryRowContext(ctx, query).Scan(
		&profile.ID, &profile.CreatedAt, &profile.UpdatedAt,
		&profile.ProfileID, &profile.Name, &profile.Description,
		&profile.IsDefault,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return profile, err
}

// SetDefaultDeviceProfile marks a profile as default, clearing any
// previous default first
func (s *PostgresStore) SetDefaultDeviceProfile(ctx context.Context, id uuid.UUID) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ps := tx.(*PostgresStore)

	if _, err := ps.getDB().ExecContext(ctx,
		`UPDATE device_profiles SET is_default = FALSE, updated_at = $1 WHERE is_default = TRUE`,
		time.Now(),
	); err != nil {
		return err
	}

	result, err := ps.getDB().ExecContext(ctx,
		`UPDATE device_profiles SET is_default = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
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

	return tx.Commit()
}

// ListDeviceProfiles lists device profiles
func (s *PostgresStore) ListDeviceProfiles(ctx context.Context) ([]*models.DeviceProfile, error) {
	query := `
        SELECT id, created_at, updated_at, profile_id, name, description, is_default
        FROM device_profiles
        ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.DeviceProfile
	for rows.Next() {
		profile := &models.DeviceProfile{}
		err := rows.Scan(
			&profile.ID, &profile.CreatedAt, &profile.UpdatedAt,
			&profile.ProfileID, &profile.Name, &profile.Description,
			&profile.IsDefault,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// DeleteDeviceProfile deletes a device profile
func (s *PostgresStore) DeleteDeviceProfile(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM device_profiles WHERE id = $1", id)
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
