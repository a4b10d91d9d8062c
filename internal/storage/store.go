package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// ProjectContact is the name/email pair used to correlate billing
// subscriptions with already-provisioned projects.
type ProjectContact struct {
	Name          string
	CustomerEmail string
}

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
	ListOwnerUsers(ctx context.Context) ([]*models.User, error)

	// Subscription methods
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, includeProvisioned bool) ([]*models.Subscription, error)
	SetSubscriptionProvisioned(ctx context.Context, subscriptionID string, provisioned bool) error

	// Billing catalog methods
	UpsertBillingProduct(ctx context.Context, product *models.BillingProduct) error
	ListBillingProducts(ctx context.Context, status string) ([]*models.BillingProduct, error)
	UpsertBillingPlan(ctx context.Context, plan *models.BillingPlan) error
	ListBillingPlans(ctx context.Context, status string) ([]*models.BillingPlan, error)

	// Use-case mapping methods
	CreateUseCaseMapping(ctx context.Context, mapping *models.UseCaseMapping) error
	ListUseCaseMappings(ctx context.Context) ([]*models.UseCaseMapping, error)
	DeleteUseCaseMapping(ctx context.Context, id uuid.UUID) error

	// Plan-profile mapping methods
	CreatePlanProfileMapping(ctx context.Context, mapping *models.PlanProfileMapping) error
	ListPlanProfileMappings(ctx context.Context) ([]*models.PlanProfileMapping, error)
	DeletePlanProfileMapping(ctx context.Context, id uuid.UUID) error

	// Device profile methods
	UpsertDeviceProfile(ctx context.Context, profile *models.DeviceProfile) error
	GetDeviceProfileByName(ctx context.Context, name string) (*models.DeviceProfile, error)
	GetDefaultDeviceProfile(ctx context.Context) (*models.DeviceProfile, error)
	SetDefaultDeviceProfile(ctx context.Context, id uuid.UUID) error
	ListDeviceProfiles(ctx context.Context) ([]*models.DeviceProfile, error)
	DeleteDeviceProfile(ctx context.Context, id uuid.UUID) error

	// Project methods
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectByTenantID(ctx context.Context, tenantID string) (*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, limit, offset int) ([]*models.Project, int64, error)
	ListProjectContacts(ctx context.Context) ([]ProjectContact, error)
	ListProjectTenantIDs(ctx context.Context) ([]string, error)

	// Task methods
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	ListProjectTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
	DeleteProjectTasks(ctx context.Context, projectID uuid.UUID) error

	// Task comment methods
	CreateTaskComment(ctx context.Context, comment *models.TaskComment) error
	ListTaskComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error)

	// Task template methods
	CreateTaskTemplate(ctx context.Context, template *models.TaskTemplate) error
	GetTaskTemplate(ctx context.Context, id uuid.UUID) (*models.TaskTemplate, error)
	ListTaskTemplates(ctx context.Context) ([]*models.TaskTemplate, error)
	DeleteTaskTemplate(ctx context.Context, id uuid.UUID) error

	// Close the store
	Close() error
}
