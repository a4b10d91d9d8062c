package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/deviceplatform"
	"github.com/tenant-hub/tenant-hub-server/internal/metrics"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/notify"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// DeviceClient is the slice of the device platform client the engine
// needs
type DeviceClient interface {
	Login(ctx context.Context, username, password string) (*deviceplatform.TokenPair, error)
	CreateTenant(ctx context.Context, token, title, profileID, useCase, email string) (*deviceplatform.Tenant, error)
	CreateTenantAdmin(ctx context.Context, token, tenantID, email, firstName, lastName string, sendActivationMail bool) (*deviceplatform.User, error)
	ListTenantUsers(ctx context.Context, token, tenantID string) ([]deviceplatform.User, error)
	GetActivationLink(ctx context.Context, token, userID string) (string, error)
}

// Result is the outcome of a successful provisioning run
type Result struct {
	TenantID       string `json:"tenantId"`
	TenantName     string `json:"tenantName"`
	ProfileID      string `json:"profileId"`
	UseCase        string `json:"useCase"`
	AdminEmail     string `json:"adminEmail"`
	ProjectCreated bool   `json:"projectCreated"`
}

// Engine provisions tenants on the device platform from billing
// subscriptions. Concurrent runs for the same subscription are
// serialized with a per-subscription lock.
type Engine struct {
	store    storage.Store
	devices  DeviceClient
	notifier notify.Notifier

	platformCfg config.DevicePlatformConfig
	provCfg     config.ProvisioningConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a provisioning engine
func NewEngine(store storage.Store, devices DeviceClient, notifier notify.Notifier, platformCfg config.DevicePlatformConfig, provCfg config.ProvisioningConfig) *Engine {
	return &Engine{
		store:       store,
		devices:     devices,
		notifier:    notifier,
		platformCfg: platformCfg,
		provCfg:     provCfg,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockSubscription returns the per-subscription lock, creating it on
// first use
func (e *Engine) lockSubscription(subscriptionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[subscriptionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[subscriptionID] = lock
	}

	return lock
}

// Provision provisions a tenant for the given subscription. The
// manager id and task template ids are optional. Mapping resolution
// happens before any write or external call, so a configuration
// error leaves no trace.
func (e *Engine) Provision(ctx context.Context, subscriptionID string, managerID *uuid.UUID, taskTemplateIDs []uuid.UUID) (*Result, error) {
	lock := e.lockSubscription(subscriptionID)
	lock.Lock()
	defer lock.Unlock()

	result, err := e.provision(ctx, subscriptionID, managerID, taskTemplateIDs)
	if err != nil {
		metrics.ProvisionAttempts.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	metrics.ProvisionAttempts.WithLabelValues("success").Inc()
	return result, nil
}

func (e *Engine) provision(ctx context.Context, subscriptionID string, managerID *uuid.UUID, taskTemplateIDs []uuid.UUID) (*Result, error) {
	sub, err := e.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{SubscriptionID: subscriptionID}
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	useCase, err := resolveUseCase(ctx, e.store, sub.PlanCode)
	if err != nil {
		return nil, err
	}

	profileID, err := resolveProfileID(ctx, e.store, sub.PlanName, sub.PlanCode)
	if err != nil {
		return nil, err
	}

	tokens, err := e.devices.Login(ctx, e.platformCfg.Username, e.platformCfg.Password)
	if err != nil {
		return nil, &ExternalServiceError{Operation: "login", Err: err}
	}
	token := tokens.Token

	tenant, err := e.devices.CreateTenant(ctx, token, sub.CustomerName, profileID, useCase, sub.Email)
	if err != nil {
		return nil, &ExternalServiceError{Operation: "create tenant", Err: err}
	}
	tenantID := tenant.ID.ID

	adminEmail := sub.Email
	admin := e.createTenantAdmin(ctx, token, tenantID, adminEmail, sub.CustomerName)

	activationLink := ""
	if admin != nil {
		link, err := e.devices.GetActivationLink(ctx, token, admin.ID.ID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("tenant_id", tenantID).
				Str("admin_email", adminEmail).
				Msg("Failed to fetch activation link")
		} else {
			activationLink = link
		}
	}

	project, created, err := e.ensureProject(ctx, sub, tenantID, useCase, managerID)
	if err != nil {
		return nil, err
	}

	if created {
		e.seedTasks(ctx, project, taskTemplateIDs)
	}

	if err := e.store.SetSubscriptionProvisioned(ctx, subscriptionID, true); err != nil {
		return nil, fmt.Errorf("mark subscription provisioned: %w", err)
	}

	e.notifyManager(ctx, sub, managerID, adminEmail, activationLink)

	log.Info().
		Str("subscription_id", subscriptionID).
		Str("tenant_id", tenantID).
		Str("use_case", useCase).
		Str("profile_id", profileID).
		Msg("Tenant provisioned")

	return &Result{
		TenantID:       tenantID,
		TenantName:     sub.CustomerName,
		ProfileID:      profileID,
		UseCase:        useCase,
		AdminEmail:     adminEmail,
		ProjectCreated: created,
	}, nil
}

// createTenantAdmin creates the tenant admin user. Creation failure
// is not fatal: the user may already exist, so a recovery search of
// the tenant's users by email runs before giving up.
func (e *Engine) createTenantAdmin(ctx context.Context, token, tenantID, email, customerName string) *deviceplatform.User {
	admin, err := e.devices.CreateTenantAdmin(ctx, token, tenantID, email, e.provCfg.AdminFirstName, customerName, false)
	if err == nil {
		return admin
	}

	log.Warn().
		Err(err).
		Str("tenant_id", tenantID).
		Str("admin_email", email).
		Msg("Failed to create tenant admin, checking for existing user")

	users, err := e.devices.ListTenantUsers(ctx, token, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("Failed to search tenant users")
		return nil
	}

	for i := range users {
		if users[i].Email == email {
			return &users[i]
		}
	}

	return nil
}

// ensureProject finds or creates the local project for a tenant
func (e *Engine) ensureProject(ctx context.Context, sub *models.Subscription, tenantID, useCase string, managerID *uuid.UUID) (*models.Project, bool, error) {
	existing, err := e.store.GetProjectByTenantID(ctx, tenantID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("get project by tenant id: %w", err)
	}

	project := &models.Project{
		Name:          sub.CustomerName,
		Description:   fmt.Sprintf("Project for %s", sub.CustomerName),
		TenantID:      tenantID,
		ManagerID:     managerID,
		Status:        models.ProjectStatusActive,
		UseCase:       useCase,
		Plan:          sub.PlanName,
		CustomerEmail: sub.Email,
	}

	if err := e.store.CreateProject(ctx, project); err != nil {
		return nil, false, fmt.Errorf("create project: %w", err)
	}

	return project, true, nil
}

// seedTasks inserts a Pending task for each referenced template.
// Missing templates and insert failures are logged and skipped.
func (e *Engine) seedTasks(ctx context.Context, project *models.Project, templateIDs []uuid.UUID) {
	for _, templateID := range templateIDs {
		template, err := e.store.GetTaskTemplate(ctx, templateID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("template_id", templateID.String()).
				Str("project", project.Name).
				Msg("Skipping task template")
			continue
		}

		task := &models.Task{
			ProjectID:   project.ID,
			Title:       template.Title,
			Description: template.Description,
			Status:      models.TaskStatusPending,
			Criticality: template.Criticality,
		}
		if err := e.store.CreateTask(ctx, task); err != nil {
			log.Warn().
				Err(err).
				Str("template_id", templateID.String()).
				Str("project", project.Name).
				Msg("Failed to seed task from template")
		}
	}
}

// notifyManager publishes the internal provisioning notification to
// the technical manager, when one was supplied and has an email
func (e *Engine) notifyManager(ctx context.Context, sub *models.Subscription, managerID *uuid.UUID, adminEmail, activationLink string) {
	if managerID == nil {
		return
	}

	manager, err := e.store.GetUser(ctx, *managerID)
	if err != nil {
		log.Warn().Err(err).Str("manager_id", managerID.String()).Msg("Failed to load technical manager")
		return
	}
	if manager.Email == "" {
		return
	}

	subject := notify.TenantProvisionedSubject(sub.CustomerName)
	body := notify.TenantProvisionedBody(sub.CustomerName, sub.PlanName, adminEmail, e.provCfg.DashboardURL, activationLink)

	e.notifier.Send(notify.KindTenantProvisioned, []string{manager.Email}, subject, body)
}

func outcomeLabel(err error) string {
	var notFound *NotFoundError
	var configErr *ConfigurationError
	var externalErr *ExternalServiceError

	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.As(err, &externalErr):
		return "external_error"
	default:
		return "error"
	}
}
