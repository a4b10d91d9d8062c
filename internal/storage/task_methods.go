package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
)

// ========== Task Methods ==========

// CreateTask creates a new task
func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Criticality == "" {
		task.Criticality = models.CriticalityMedium
	}

	query := `
        INSERT INTO tasks (
            id, created_at, updated_at, project_id, title, description,
            status, criticality, issue, started_at, completed_at,
            total_duration
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		task.ID, task.CreatedAt, task.UpdatedAt, task.ProjectID, task.Title,
		task.Description, string(task.Status), task.Criticality, task.Issue,
		task.StartedAt, task.CompletedAt, task.TotalDuration,
	)

	return err
}

// GetTask gets a task by ID
func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `
        SELECT id, created_at, updated_at, project_id, title, description,
               status, criticality, issue, started_at, completed_at,
               total_duration
        FROM tasks
        WHERE id = $1`

	task := &models.Task{}
	var status string
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.CreatedAt, &task.UpdatedAt, &task.ProjectID,
		&task.Title, &task.Description, &status, &task.Criticality,
		&task.Issue, &task.StartedAt, &task.CompletedAt, &task.TotalDuration,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	return task, nil
}

// UpdateTask updates a task
func (s *PostgresStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()

	query := `
        UPDATE tasks SET
            updated_at = $2, title = $3, description = $4, status = $5,
            criticality = $6, issue = $7, started_at = $8, completed_at = $9,
            total_duration = $10
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		task.ID, task.UpdatedAt, task.Title, task.Description,
		string(task.Status), task.Criticality, task.Issue, task.StartedAt,
		task.CompletedAt, task.TotalDuration,
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

// ListProjectTasks lists all tasks belonging to a project
func (s *PostgresStore) ListProjectTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	query := `
        SELECT id, created_at, updated_at, project_id, title, description,
               status, criticality, issue, started_at, completed_at,
               total_duration
        FROM tasks
        WHERE project_id = $1
        ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var status string
		err := rows.Scan(
			&task.ID, &task.CreatedAt, &task.UpdatedAt, &task.ProjectID,
			&task.Title, &task.Description, &status, &task.Criticality,
			&task.Issue, &task.StartedAt, &task.CompletedAt,
			&task.TotalDuration,
		)
		if err != nil {
			return nil, err
		}
		task.Status = models.TaskStatus(status)
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// DeleteProjectTasks deletes all tasks belonging to a project
func (s *PostgresStore) DeleteProjectTasks(ctx context.Context, projectID uuid.UUID) error {
	_, err := s.getDB().ExecContext(ctx, "DELETE FROM tasks WHERE project_id = $1", projectID)
	return err
}

// ========== Task Comment Methods ==========

// CreateTaskComment creates an audit comment on a task
func (s *PostgresStore) CreateTaskComment(ctx context.Context, comment *models.TaskComment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now()

	query := `
        INSERT INTO task_comments (
            id, created_at, task_id, project_name, comment
        ) VALUES (
            $1, $2, $3, $4, $5
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		comment.ID, comment.CreatedAt, comment.TaskID, comment.ProjectName,
		comment.Comment,
	)

	return err
}

// ListTaskComments lists comments attached to a task
func (s *PostgresStore) ListTaskComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	query := `
        SELECT id, created_at, task_id, project_name, comment
        FROM task_comments
        WHERE task_id = $1
        ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.TaskComment
	for rows.Next() {
		comment := &models.TaskComment{}
		err := rows.Scan(
			&comment.ID, &comment.CreatedAt, &comment.TaskID,
			&comment.ProjectName, &comment.Comment,
		)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

// ========== Task Template Methods ==========

// CreateTaskTemplate creates a new task template
func (s *PostgresStore) CreateTaskTemplate(ctx context.Context, template *models.TaskTemplate) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}

	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now

	if template.Criticality == "" {
		template.Criticality = models.CriticalityMedium
	}

	query := `
        INSERT INTO task_templates (
            id, created_at, updated_at, title, description, criticality
        ) VALUES (
            $1, $2, $3, $4, $5, $6
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		template.ID, template.CreatedAt, template.UpdatedAt, template.Title,
		template.Description, template.Criticality,
	)

	return err
}

// GetTaskTemplate gets a task template by ID
func (s *PostgresStore) GetTaskTemplate(ctx context.Context, id uuid.UUID) (*models.TaskTemplate, error) {
	query := `
        SELECT id, created_at, updated_at, title, description, criticality
        FROM task_templates
        WHERE id = $1`

	template := &models.TaskTemplate{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&template.ID, &template.CreatedAt, &template.UpdatedAt,
		&template.Title, &template.Description, &template.Criticality,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return template, err
}

// ListTaskTemplates lists task templates
func (s *PostgresStore) ListTaskTemplates(ctx context.Context) ([]*models.TaskTemplate, error) {
	query := `
        SELECT id, created_at, updated_at, title, description, criticality
        FROM task_templates
        ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.TaskTemplate
	for rows.Next() {
		template := &models.TaskTemplate{}
		err := rows.Scan(
			&template.ID, &template.CreatedAt, &template.UpdatedAt,
			&template.Title, &template.Description, &template.Criticality,
		)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

// DeleteTaskTemplate deletes a task template
func (s *PostgresStore) DeleteTaskTemplate(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM task_templates WHERE id = $1", id)
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
