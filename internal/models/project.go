package models

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses used by the lifecycle cascade. The column itself is
// free text for compatibility with older rows.
const (
	ProjectStatusActive    = "Active"
	ProjectStatusCompleted = "Completed"
)

// Project is the local representation of a provisioned tenant
type Project struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	// TenantID is the external device-platform tenant id. It is the
	// reconciliation key between the local store and the platform.
	TenantID string `json:"tenantId" db:"tenant_id"`

	ManagerID *uuid.UUID `json:"managerId,omitempty" db:"manager_id"`

	Status               string `json:"status" db:"status"`
	UseCase              string `json:"useCase" db:"use_case"`
	Plan                 string `json:"plan" db:"plan"`
	CompletionPercentage int    `json:"completionPercentage" db:"completion_percentage"`
	CustomerEmail        string `json:"customerEmail" db:"customer_email"`
}
