package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the closed task status enum. The column stores it as a
// string; ParseTaskStatus guards the boundary against unknown values.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// ParseTaskStatus parses a stored or submitted status string
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Task criticalities
const (
	CriticalityLow    = "Low"
	CriticalityMedium = "Medium"
	CriticalityHigh   = "High"
)

// Task belongs to exactly one project
type Task struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	ProjectID uuid.UUID `json:"projectId" db:"project_id"`

	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Criticality string     `json:"criticality" db:"criticality"`
	Issue       string     `json:"issue" db:"issue"`

	StartedAt   *time.Time `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`

	// TotalDuration is accumulated working time in seconds.
	TotalDuration int64 `json:"totalDuration" db:"total_duration"`
}

// TaskComment is an audit comment attached to a task. Rejected status
// transitions are recorded here before the error is surfaced.
type TaskComment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TaskID      uuid.UUID `json:"taskId" db:"task_id"`
	ProjectName string    `json:"projectName" db:"project_name"`
	Comment     string    `json:"comment" db:"comment"`
}

// TaskTemplate is a reusable title/description/criticality triple used
// to stamp out tasks during provisioning or manually.
type TaskTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Criticality string `json:"criticality" db:"criticality"`
}
