package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/notify"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

type fakeTaskStore struct {
	storage.Store

	tasks    map[uuid.UUID]*models.Task
	projects map[uuid.UUID]*models.Project
	users    map[uuid.UUID]*models.User
	owners   []*models.User

	comments       []*models.TaskComment
	projectUpdates int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:    make(map[uuid.UUID]*models.Task),
		projects: make(map[uuid.UUID]*models.Project),
		users:    make(map[uuid.UUID]*models.User),
	}
}

func (f *fakeTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return project, nil
}

func (f *fakeTaskStore) UpdateProject(ctx context.Context, project *models.Project) error {
	f.projects[project.ID] = project
	f.projectUpdates++
	return nil
}

func (f *fakeTaskStore) ListProjectTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range f.tasks {
		if task.ProjectID == projectID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) CreateTaskComment(ctx context.Context, comment *models.TaskComment) error {
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeTaskStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeTaskStore) ListOwnerUsers(ctx context.Context) ([]*models.User, error) {
	return f.owners, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sends []notify.Message
}

func (r *recordingNotifier) Send(kind string, recipients []string, subject, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, notify.Message{Kind: kind, Recipients: recipients, Subject: subject, Body: body})
}

func seedProjectWithTask(store *fakeTaskStore, status models.TaskStatus) (*models.Project, *models.Task) {
	project := &models.Project{
		ID:            uuid.New(),
		Name:          "Acme Corp",
		Status:        models.ProjectStatusActive,
		CustomerEmail: "ops@acme.example",
	}
	store.projects[project.ID] = project

	task := &models.Task{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Title:     "Configure gateways",
		Status:    status,
	}
	store.tasks[task.ID] = task

	return project, task
}

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestForwardTransitionStampsStartedAt(t *testing.T) {
	store := newFakeTaskStore()
	_, task := seedProjectWithTask(store, models.TaskStatusPending)
	notifier := &recordingNotifier{}

	svc := NewService(store, notifier)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	updated, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusInProgress)})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, now, *updated.StartedAt)
	assert.Nil(t, updated.CompletedAt)

	require.Len(t, notifier.sends, 1)
	sent := notifier.sends[0]
	assert.Equal(t, notify.KindTaskStatus, sent.Kind)
	assert.Equal(t, []string{"ops@acme.example"}, sent.Recipients)
	assert.Equal(t, "Working on your task: Configure gateways", sent.Subject)
}

func TestCompletionAccumulatesDuration(t *testing.T) {
	store := newFakeTaskStore()
	_, task := seedProjectWithTask(store, models.TaskStatusInProgress)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task.StartedAt = &started

	notifier := &recordingNotifier{}
	svc := NewService(store, notifier)
	svc.now = func() time.Time { return started.Add(90 * time.Minute) }

	updated, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusCompleted)})
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, int64(5400), updated.TotalDuration)

	require.NotEmpty(t, notifier.sends)
	assert.Equal(t, "Task Completed successfully: Configure gateways", notifier.sends[0].Subject)
}

func TestInvalidTransitionRejectedWithAuditComment(t *testing.T) {
	store := newFakeTaskStore()
	project, task := seedProjectWithTask(store, models.TaskStatusPending)
	notifier := &recordingNotifier{}

	svc := NewService(store, notifier)

	_, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusCompleted)})

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.TaskStatusPending, invalid.From)
	assert.Equal(t, models.TaskStatusCompleted, invalid.To)

	require.Len(t, store.comments, 1)
	comment := store.comments[0]
	assert.Equal(t, task.ID, comment.TaskID)
	assert.Equal(t, project.Name, comment.ProjectName)
	assert.Equal(t, "Invalid status change attempted from 'Pending' to 'Completed'.", comment.Comment)

	// status untouched, nothing sent
	assert.Equal(t, models.TaskStatusPending, store.tasks[task.ID].Status)
	assert.Empty(t, notifier.sends)
}

func TestBackwardTransitionRejected(t *testing.T) {
	store := newFakeTaskStore()
	_, task := seedProjectWithTask(store, models.TaskStatusCompleted)

	svc := NewService(store, &recordingNotifier{})

	_, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusInProgress)})

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, store.comments, 1)
}

func TestSelfTransitionAllowedWithoutNotification(t *testing.T) {
	store := newFakeTaskStore()
	_, task := seedProjectWithTask(store, models.TaskStatusInProgress)
	notifier := &recordingNotifier{}

	svc := NewService(store, notifier)

	updated, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, updated.Status)
	assert.Nil(t, updated.StartedAt, "self transition does not restamp")
	assert.Empty(t, notifier.sends)
	assert.Empty(t, store.comments)
}

func TestNonStatusFieldsUpdated(t *testing.T) {
	store := newFakeTaskStore()
	_, task := seedProjectWithTask(store, models.TaskStatusPending)

	svc := NewService(store, &recordingNotifier{})

	issue := "Customer firewall blocks outbound MQTT"
	updated, err := svc.UpdateTask(context.Background(), task.ID, Update{Issue: &issue})
	require.NoError(t, err)
	assert.Equal(t, issue, updated.Issue)
	assert.Equal(t, models.TaskStatusPending, updated.Status)
}

func TestCompletionCascadeFlipsProjectOnce(t *testing.T) {
	store := newFakeTaskStore()
	project, task := seedProjectWithTask(store, models.TaskStatusInProgress)

	managerID := uuid.New()
	project.ManagerID = &managerID
	store.users[managerID] = &models.User{Email: "manager@example.com"}
	store.owners = []*models.User{
		{Email: "owner@example.com"},
		{Email: "manager@example.com"}, // overlaps with manager, must dedup
	}

	other := &models.Task{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Title:     "Ship devices",
		Status:    models.TaskStatusCompleted,
	}
	store.tasks[other.ID] = other

	notifier := &recordingNotifier{}
	svc := NewService(store, notifier)

	_, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusCompleted, store.projects[project.ID].Status)
	assert.Equal(t, 100, store.projects[project.ID].CompletionPercentage)
	assert.Equal(t, 1, store.projectUpdates)

	require.Len(t, notifier.sends, 2, "customer mail plus completion mail")
	completion := notifier.sends[1]
	assert.Equal(t, notify.KindProjectCompleted, completion.Kind)
	assert.Equal(t, []string{"manager@example.com", "owner@example.com"}, completion.Recipients)
	assert.Equal(t, "Project Completed: Acme Corp", completion.Subject)
	assert.Contains(t, completion.Body, "manager@example.com")
}

func TestNoCascadeWhileTasksRemain(t *testing.T) {
	store := newFakeTaskStore()
	project, task := seedProjectWithTask(store, models.TaskStatusInProgress)

	pending := &models.Task{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Title:     "Install sensors",
		Status:    models.TaskStatusPending,
	}
	store.tasks[pending.ID] = pending

	notifier := &recordingNotifier{}
	svc := NewService(store, notifier)

	_, err := svc.UpdateTask(context.Background(), task.ID, Update{Status: statusPtr(models.TaskStatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusActive, store.projects[project.ID].Status)
	require.Len(t, notifier.sends, 1, "customer mail only")
}
