package provision

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/deviceplatform"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/notify"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

type fakeStore struct {
	storage.Store

	mu sync.Mutex

	subscriptions map[string]*models.Subscription
	useCases      []*models.UseCaseMapping
	planMappings  []*models.PlanProfileMapping
	profiles      []*models.DeviceProfile
	templates     map[uuid.UUID]*models.TaskTemplate
	users         map[uuid.UUID]*models.User

	projects []*models.Project
	tasks    []*models.Task

	provisioned []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subscriptions: make(map[string]*models.Subscription),
		templates:     make(map[uuid.UUID]*models.TaskTemplate),
		users:         make(map[uuid.UUID]*models.User),
	}
}

func (f *fakeStore) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) SetSubscriptionProvisioned(ctx context.Context, subscriptionID string, provisioned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisioned = append(f.provisioned, subscriptionID)
	if sub, ok := f.subscriptions[subscriptionID]; ok {
		sub.IsProvisioned = provisioned
	}
	return nil
}

func (f *fakeStore) ListUseCaseMappings(ctx context.Context) ([]*models.UseCaseMapping, error) {
	return f.useCases, nil
}

func (f *fakeStore) ListPlanProfileMappings(ctx context.Context) ([]*models.PlanProfileMapping, error) {
	return f.planMappings, nil
}

func (f *fakeStore) GetDeviceProfileByName(ctx context.Context, name string) (*models.DeviceProfile, error) {
	for _, p := range f.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetDefaultDeviceProfile(ctx context.Context) (*models.DeviceProfile, error) {
	for _, p := range f.profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetProjectByTenantID(ctx context.Context, tenantID string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.TenantID == tenantID {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) CreateProject(ctx context.Context, project *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	project.ID = uuid.New()
	f.projects = append(f.projects, project)
	return nil
}

func (f *fakeStore) GetTaskTemplate(ctx context.Context, id uuid.UUID) (*models.TaskTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = uuid.New()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

type fakeDeviceClient struct {
	mu sync.Mutex

	loginErr        error
	createTenantErr error
	createAdminErr  error
	activationLink  string

	tenantsCreated int
	existingUsers  []deviceplatform.User
}

func (f *fakeDeviceClient) Login(ctx context.Context, username, password string) (*deviceplatform.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &deviceplatform.TokenPair{Token: "tok"}, nil
}

func (f *fakeDeviceClient) CreateTenant(ctx context.Context, token, title, profileID, useCase, email string) (*deviceplatform.Tenant, error) {
	if f.createTenantErr != nil {
		return nil, f.createTenantErr
	}
	f.mu.Lock()
	f.tenantsCreated++
	f.mu.Unlock()
	return &deviceplatform.Tenant{
		ID:    &deviceplatform.EntityID{ID: "tenant-1", EntityType: "TENANT"},
		Title: title,
	}, nil
}

func (f *fakeDeviceClient) CreateTenantAdmin(ctx context.Context, token, tenantID, email, firstName, lastName string, sendActivationMail bool) (*deviceplatform.User, error) {
	if f.createAdminErr != nil {
		return nil, f.createAdminErr
	}
	return &deviceplatform.User{
		ID:    &deviceplatform.EntityID{ID: "user-1", EntityType: "USER"},
		Email: email,
	}, nil
}

func (f *fakeDeviceClient) ListTenantUsers(ctx context.Context, token, tenantID string) ([]deviceplatform.User, error) {
	return f.existingUsers, nil
}

func (f *fakeDeviceClient) GetActivationLink(ctx context.Context, token, userID string) (string, error) {
	if f.activationLink == "" {
		return "", errors.New("link not found")
	}
	return f.activationLink, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []notify.Message
}

func (f *fakeNotifier) Send(kind string, recipients []string, subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, notify.Message{Kind: kind, Recipients: recipients, Subject: subject, Body: body})
}

func newTestEngine(store *fakeStore, devices *fakeDeviceClient, notifier *fakeNotifier) *Engine {
	return NewEngine(store, devices, notifier,
		config.DevicePlatformConfig{Username: "svc@example.com", Password: "secret"},
		config.ProvisioningConfig{DashboardURL: "https://hub.example.com", AdminFirstName: "Technical Admin"},
	)
}

func seedSubscription(store *fakeStore) *models.Subscription {
	sub := &models.Subscription{
		SubscriptionID: "sub-1",
		CustomerName:   "Acme Corp",
		Email:          "ops@acme.example",
		PlanName:       "Smart Metering Pro",
		PlanCode:       "SM-PRO-M",
	}
	store.subscriptions["sub-1"] = sub
	return sub
}

func TestProvisionHappyPath(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.useCases = []*models.UseCaseMapping{
		{Name: "Asset Tracking", PlanPrefix: "AT-"},
		{Name: "Smart Metering", PlanPrefix: "SM-"},
	}
	store.planMappings = []*models.PlanProfileMapping{
		{PlanKeyword: "Pro", ProfileName: "Professional"},
	}
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-pro", Name: "Professional"},
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	managerID := uuid.New()
	store.users[managerID] = &models.User{Email: "manager@example.com"}

	devices := &fakeDeviceClient{activationLink: "https://devices.example.com/activate?token=abc"}
	notifier := &fakeNotifier{}

	engine := newTestEngine(store, devices, notifier)

	result, err := engine.Provision(context.Background(), "sub-1", &managerID, nil)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", result.TenantID)
	assert.Equal(t, "Acme Corp", result.TenantName)
	assert.Equal(t, "profile-pro", result.ProfileID)
	assert.Equal(t, "Smart Metering", result.UseCase)
	assert.Equal(t, "ops@acme.example", result.AdminEmail)
	assert.True(t, result.ProjectCreated)

	require.Len(t, store.projects, 1)
	project := store.projects[0]
	assert.Equal(t, "Acme Corp", project.Name)
	assert.Equal(t, "Project for Acme Corp", project.Description)
	assert.Equal(t, "tenant-1", project.TenantID)
	assert.Equal(t, models.ProjectStatusActive, project.Status)
	assert.Equal(t, "Smart Metering Pro", project.Plan)
	assert.Equal(t, "ops@acme.example", project.CustomerEmail)

	assert.Equal(t, []string{"sub-1"}, store.provisioned)

	require.Len(t, notifier.sends, 1)
	sent := notifier.sends[0]
	assert.Equal(t, notify.KindTenantProvisioned, sent.Kind)
	assert.Equal(t, []string{"manager@example.com"}, sent.Recipients)
	assert.Contains(t, sent.Subject, "Acme Corp")
	assert.Contains(t, sent.Body, "https://devices.example.com/activate?token=abc")
}

func TestProvisionUnknownSubscription(t *testing.T) {
	engine := newTestEngine(newFakeStore(), &fakeDeviceClient{}, &fakeNotifier{})

	_, err := engine.Provision(context.Background(), "missing", nil, nil)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.SubscriptionID)
}

func TestProvisionFallsBackToDefaultProfileAndUseCase(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	engine := newTestEngine(store, &fakeDeviceClient{}, &fakeNotifier{})

	result, err := engine.Provision(context.Background(), "sub-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultUseCase, result.UseCase)
	assert.Equal(t, "profile-default", result.ProfileID)
}

func TestProvisionSkipsMappingWithUnknownProfile(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.planMappings = []*models.PlanProfileMapping{
		{PlanKeyword: "Pro", ProfileName: "Retired"},
		{PlanKeyword: "Metering", ProfileName: "Metering"},
	}
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-metering", Name: "Metering"},
	}

	engine := newTestEngine(store, &fakeDeviceClient{}, &fakeNotifier{})

	result, err := engine.Provision(context.Background(), "sub-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "profile-metering", result.ProfileID)
}

func TestProvisionConfigErrorMakesNoCallsAndNoWrites(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	// no profiles at all: resolution must fail before anything happens

	devices := &fakeDeviceClient{}
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, devices, notifier)

	_, err := engine.Provision(context.Background(), "sub-1", nil, nil)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "No matching profile found and no default profile configured.", configErr.Reason)

	assert.Zero(t, devices.tenantsCreated)
	assert.Empty(t, store.projects)
	assert.Empty(t, store.provisioned)
	assert.Empty(t, notifier.sends)
}

func TestProvisionTenantCreateFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	devices := &fakeDeviceClient{createTenantErr: errors.New("tenant with such title already exists")}
	engine := newTestEngine(store, devices, &fakeNotifier{})

	_, err := engine.Provision(context.Background(), "sub-1", nil, nil)

	var external *ExternalServiceError
	require.ErrorAs(t, err, &external)
	assert.Equal(t, "create tenant", external.Operation)

	assert.Empty(t, store.projects)
	assert.Empty(t, store.provisioned)
}

func TestProvisionAdminCreateFailureRecoversExistingUser(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	managerID := uuid.New()
	store.users[managerID] = &models.User{Email: "manager@example.com"}

	devices := &fakeDeviceClient{
		createAdminErr: errors.New("user already exists"),
		existingUsers: []deviceplatform.User{
			{ID: &deviceplatform.EntityID{ID: "user-9", EntityType: "USER"}, Email: "other@acme.example"},
			{ID: &deviceplatform.EntityID{ID: "user-1", EntityType: "USER"}, Email: "ops@acme.example"},
		},
		activationLink: "https://devices.example.com/activate?token=xyz",
	}
	notifier := &fakeNotifier{}

	engine := newTestEngine(store, devices, notifier)

	result, err := engine.Provision(context.Background(), "sub-1", &managerID, nil)
	require.NoError(t, err)
	assert.True(t, result.ProjectCreated)

	require.Len(t, notifier.sends, 1)
	assert.Contains(t, notifier.sends[0].Body, "token=xyz")
}

func TestProvisionAdminFailureYieldsNotAvailableLink(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	managerID := uuid.New()
	store.users[managerID] = &models.User{Email: "manager@example.com"}

	devices := &fakeDeviceClient{createAdminErr: errors.New("boom")}
	notifier := &fakeNotifier{}

	engine := newTestEngine(store, devices, notifier)

	_, err := engine.Provision(context.Background(), "sub-1", &managerID, nil)
	require.NoError(t, err)

	require.Len(t, notifier.sends, 1)
	assert.Contains(t, notifier.sends[0].Body, "Not available")
}

func TestProvisionSeedsTasksFromTemplates(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	knownID := uuid.New()
	store.templates[knownID] = &models.TaskTemplate{
		Title:       "Onboarding call",
		Description: "Schedule the kickoff call",
		Criticality: models.CriticalityHigh,
	}
	missingID := uuid.New()

	engine := newTestEngine(store, &fakeDeviceClient{}, &fakeNotifier{})

	_, err := engine.Provision(context.Background(), "sub-1", nil, []uuid.UUID{knownID, missingID})
	require.NoError(t, err)

	require.Len(t, store.tasks, 1, "missing template skipped")
	task := store.tasks[0]
	assert.Equal(t, "Onboarding call", task.Title)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.CriticalityHigh, task.Criticality)
}

func TestProvisionIdempotentProjectCreation(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	engine := newTestEngine(store, &fakeDeviceClient{}, &fakeNotifier{})

	first, err := engine.Provision(context.Background(), "sub-1", nil, nil)
	require.NoError(t, err)
	second, err := engine.Provision(context.Background(), "sub-1", nil, nil)
	require.NoError(t, err)

	assert.Len(t, store.projects, 1, "second run reuses the existing project")
	assert.True(t, first.ProjectCreated)
	assert.False(t, second.ProjectCreated, "reused project must not be reported as created")
}

func TestProvisionSerializesSameSubscription(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store)
	store.profiles = []*models.DeviceProfile{
		{ProfileID: "profile-default", Name: "Default", IsDefault: true},
	}

	engine := newTestEngine(store, &fakeDeviceClient{}, &fakeNotifier{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Provision(context.Background(), "sub-1", nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, store.projects, 1)
}
