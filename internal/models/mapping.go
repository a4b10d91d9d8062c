package models

import (
	"time"

	"github.com/google/uuid"
)

// UseCaseMapping maps a billing plan-code prefix to a use-case name.
// Mappings are evaluated in ascending insertion order; the first
// mapping whose non-empty prefix starts the plan code wins.
type UseCaseMapping struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	PlanPrefix  string `json:"planPrefix" db:"plan_prefix"`
}

// PlanProfileMapping maps a billing plan keyword to a device-platform
// profile name. The profile is resolved by name at provision time.
type PlanProfileMapping struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	PlanKeyword string `json:"planKeyword" db:"plan_keyword"`
	ProfileName string `json:"profileName" db:"profile_name"`
}

// DeviceProfile mirrors a tenant profile known to the device platform.
// At most one profile should have IsDefault set; the storage layer
// clears the previous default when a new one is chosen.
type DeviceProfile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	ProfileID   string `json:"profileId" db:"profile_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	IsDefault   bool   `json:"isDefault" db:"is_default"`
}
