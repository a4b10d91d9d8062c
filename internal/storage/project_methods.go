package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
)

// ========== Project Methods ==========

// CreateProject creates a new project
func (s *PostgresStore) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}

	query := `
        INSERT INTO projects (
            id, created_at, updated_at, name, description, tenant_id,
            manager_id, status, use_case, plan, completion_percentage,
            customer_email
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		project.ID, project.CreatedAt, project.UpdatedAt, project.Name,
		project.Description, project.TenantID, project.ManagerID,
		project.Status, project.UseCase, project.Plan,
		project.CompletionPercentage, project.CustomerEmail,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetProject gets a project by ID
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
        SELECT id, created_at, updated_at, name, description, tenant_id,
               manager_id, status, use_case, plan, completion_percentage,
               customer_email
        FROM projects
        WHERE id = $1`

	project := &models.Project{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.Name,
		&project.Description, &project.TenantID, &project.ManagerID,
		&project.Status, &project.UseCase, &project.Plan,
		&project.CompletionPercentage, &project.CustomerEmail,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return project, err
}

// GetProjectByTenantID gets a project by its external tenant id
func (s *PostgresStore) GetProjectByTenantID(ctx context.Context, tenantID string) (*models.Project, error) {
	query := `
        SELECT id, created_at, updated_at, name, description, tenant_id,
               manager_id, status, use_case, plan, completion_percentage,
               customer_email
        FROM projects
        WHERE tenant_id = $1`

	project := &models.Project{}
	err := s.getDB().QueryRowContext(ctx, query, tenantID).Scan(
		&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.Name,
		&project.Description, &project.TenantID, &project.ManagerID,
		&project.Status, &project.UseCase, &project.Plan,
		&project.CompletionPercentage, &project.CustomerEmail,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return project, err
}

// UpdateProject updates a project
func (s *PostgresStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()

	query := `
        UPDATE projects SET
            updated_at = $2, name = $3, description = $4, tenant_id = $5,
            manager_id = $6, status = $7, use_case = $8, plan = $9,
            completion_percentage = $10, customer_email = $11
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		project.ID, project.UpdatedAt, project.Name, project.Description,
		project.TenantID, project.ManagerID, project.Status, project.UseCase,
		project.Plan, project.CompletionPercentage, project.CustomerEmail,
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

// DeleteProject deletes a project
func (s *PostgresStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
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

// ListProjects lists projects
func (s *PostgresStore) ListProjects(ctx context.Context, limit, offset int) ([]*models.Project, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT id, created_at, updated_at, name, description, tenant_id,
               manager_id, status, use_case, plan, completion_percentage,
               customer_email
        FROM projects
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		err := rows.Scan(
			&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.Name,
			&project.Description, &project.TenantID, &project.ManagerID,
			&project.Status, &project.UseCase, &project.Plan,
			&project.CompletionPercentage, &project.CustomerEmail,
		)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}

	return projects, count, rows.Err()
}

// ListProjectContacts lists project name/email pairs for subscription
// provisioned-flag derivation
func (s *PostgresStore) ListProjectContacts(ctx context.Context) ([]ProjectContact, error) {
	rows, err := s.getDB().QueryContext(ctx, `SELECT name, customer_email FROM projects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []ProjectContact
	for rows.Next() {
		var contact ProjectContact
		if err := rows.Scan(&contact.Name, &contact.CustomerEmail); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

// ListProjectTenantIDs lists external tenant ids referenced by projects
func (s *PostgresStore) ListProjectTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.getDB().QueryContext(ctx, `SELECT tenant_id FROM projects WHERE tenant_id <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
