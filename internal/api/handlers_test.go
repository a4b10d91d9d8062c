package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/provision"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
	"github.com/tenant-hub/tenant-hub-server/internal/tasks"
	"github.com/tenant-hub/tenant-hub-server/internal/validation"
)

// fakeHandlerStore backs handler tests with in-memory state. Embedding
// the interface makes any unexpected store call panic.
type fakeHandlerStore struct {
	storage.Store

	projects  map[uuid.UUID]*models.Project
	tasks     map[uuid.UUID]*models.Task
	templates map[uuid.UUID]*models.TaskTemplate
	comments  []*models.TaskComment
}

func newFakeHandlerStore() *fakeHandlerStore {
	return &fakeHandlerStore{
		projects:  make(map[uuid.UUID]*models.Project),
		tasks:     make(map[uuid.UUID]*models.Task),
		templates: make(map[uuid.UUID]*models.TaskTemplate),
	}
}

func (f *fakeHandlerStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeHandlerStore) GetProjectByTenantID(ctx context.Context, tenantID string) (*models.Project, error) {
	for _, p := range f.projects {
		if p.TenantID == tenantID {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeHandlerStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeHandlerStore) UpdateTask(ctx context.Context, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeHandlerStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.ID = uuid.New()
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeHandlerStore) CreateTaskComment(ctx context.Context, comment *models.TaskComment) error {
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeHandlerStore) ListProjectTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeHandlerStore) ListOwnerUsers(ctx context.Context) ([]*models.User, error) {
	return nil, nil
}

func (f *fakeHandlerStore) GetTaskTemplate(ctx context.Context, id uuid.UUID) (*models.TaskTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

type nopNotifier struct{}

func (nopNotifier) Send(kind string, recipients []string, subject, body string) {}

func newTestServer(store *fakeHandlerStore) *RESTServer {
	return &RESTServer{
		config:    &config.Config{},
		store:     store,
		validator: validation.NewValidator(),
		tasks:     tasks.NewService(store, nopNotifier{}),
	}
}

// withURLParams injects chi route parameters so handlers can be called
// without the full router
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestShutdownSurfacesServerClosed(t *testing.T) {
	s := newTestServer(newFakeHandlerStore())
	s.router = chi.NewRouter()
	s.server = &http.Server{Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe("127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	// a clean shutdown must not look like a server failure
	assert.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

func TestRespondProvisionErrorMapping(t *testing.T) {
	s := newTestServer(newFakeHandlerStore())

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unknown subscription",
			err:        &provision.NotFoundError{SubscriptionID: "sub-1"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "mapping misconfiguration",
			err:        &provision.ConfigurationError{Reason: "No matching profile found and no default profile configured."},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "tenant create failure",
			err:        &provision.ExternalServiceError{Operation: "create tenant", Err: fmt.Errorf("409")},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Failed to create tenant on the device platform (or it already exists).",
		},
		{
			name:       "login failure",
			err:        &provision.ExternalServiceError{Operation: "login", Err: fmt.Errorf("503")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.respondProvisionError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantBody != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tc.wantBody, body["error"])
			}
		})
	}
}

func seedTask(store *fakeHandlerStore, status models.TaskStatus) *models.Task {
	project := &models.Project{
		ID:     uuid.New(),
		Name:   "Acme Corp",
		Status: models.ProjectStatusActive,
	}
	store.projects[project.ID] = project

	task := &models.Task{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Title:     "Configure gateway",
		Status:    status,
	}
	store.tasks[task.ID] = task

	return task
}

func TestHandleUpdateTaskAppliesForwardTransition(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)
	task := seedTask(store, models.TaskStatusPending)

	body := bytes.NewBufferString(`{"status": "In Progress"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/tasks/"+task.ID.String(), body)
	req = withURLParams(req, map[string]string{"id": task.ID.String()})
	rec := httptest.NewRecorder()

	s.HandleUpdateTask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.TaskStatusInProgress, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestHandleUpdateTaskRejectsBackwardTransition(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)
	task := seedTask(store, models.TaskStatusPending)

	body := bytes.NewBufferString(`{"status": "Completed"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/tasks/"+task.ID.String(), body)
	req = withURLParams(req, map[string]string{"id": task.ID.String()})
	rec := httptest.NewRecorder()

	s.HandleUpdateTask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid status transition. Cannot move from Pending to Completed.", resp["error"])

	// rejection is audited
	require.Len(t, store.comments, 1)
}

func TestHandleUpdateTaskUnknownStatus(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)
	task := seedTask(store, models.TaskStatusPending)

	body := bytes.NewBufferString(`{"status": "Archived"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/tasks/"+task.ID.String(), body)
	req = withURLParams(req, map[string]string{"id": task.ID.String()})
	rec := httptest.NewRecorder()

	s.HandleUpdateTask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateTaskNotFound(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)

	body := bytes.NewBufferString(`{"status": "In Progress"}`)
	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/tasks/"+id, body)
	req = withURLParams(req, map[string]string{"id": id})
	rec := httptest.NewRecorder()

	s.HandleUpdateTask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateTaskFromTemplate(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)

	project := &models.Project{ID: uuid.New(), Name: "Acme Corp"}
	store.projects[project.ID] = project

	template := &models.TaskTemplate{
		ID:          uuid.New(),
		Title:       "Install sensors",
		Description: "Initial sensor rollout",
		Criticality: models.CriticalityHigh,
	}
	store.templates[template.ID] = template

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+project.ID.String()+"/tasks/from-template/"+template.ID.String(), nil)
	req = withURLParams(req, map[string]string{
		"id":          project.ID.String(),
		"template_id": template.ID.String(),
	})
	rec := httptest.NewRecorder()

	s.HandleCreateTaskFromTemplate(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Install sensors", got.Title)
	assert.Equal(t, models.CriticalityHigh, got.Criticality)
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestHandleLinkTenantMalformedBody(t *testing.T) {
	s := newTestServer(newFakeHandlerStore())

	body := bytes.NewBufferString(`{"managerId": `)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/tenant-1/link", body)
	req = withURLParams(req, map[string]string{"tenant_id": "tenant-1"})
	rec := httptest.NewRecorder()

	s.HandleLinkTenant(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLinkTenantEmptyBodyAllowed(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)

	project := &models.Project{ID: uuid.New(), Name: "Acme Corp", TenantID: "tenant-1"}
	store.projects[project.ID] = project

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/tenant-1/link", nil)
	req = withURLParams(req, map[string]string{"tenant_id": "tenant-1"})
	rec := httptest.NewRecorder()

	s.HandleLinkTenant(rec, req)

	// empty body parses fine; the already-linked check answers
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleCreateTaskFromTemplateMissingTemplate(t *testing.T) {
	store := newFakeHandlerStore()
	s := newTestServer(store)

	project := &models.Project{ID: uuid.New(), Name: "Acme Corp"}
	store.projects[project.ID] = project

	req := httptest.NewRequest(http.MethodPost, "/tasks/from-template", nil)
	req = withURLParams(req, map[string]string{
		"id":          project.ID.String(),
		"template_id": uuid.New().String(),
	})
	rec := httptest.NewRecorder()

	s.HandleCreateTaskFromTemplate(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
