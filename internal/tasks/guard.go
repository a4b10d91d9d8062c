package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/metrics"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/notify"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// InvalidTransitionError is returned when a status change violates
// the forward-only lifecycle. The rejected attempt has already been
// recorded as an audit comment when this is returned.
type InvalidTransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition. Cannot move from %s to %s.", e.From, e.To)
}

// Update carries the mutable task fields of an update request. Nil
// fields are left unchanged.
type Update struct {
	Status      *models.TaskStatus
	Description *string
	Issue       *string
	Criticality *string
}

// Service applies task updates under the forward-only lifecycle and
// publishes the resulting customer and completion notifications
type Service struct {
	store    storage.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a task service
func NewService(store storage.Store, notifier notify.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// transitionAllowed enforces the forward-only lifecycle: Pending may
// move to In Progress, In Progress to Completed, and any status to
// itself.
func transitionAllowed(from, to models.TaskStatus) bool {
	switch {
	case from == models.TaskStatusPending && to == models.TaskStatusInProgress:
		return true
	case from == models.TaskStatusInProgress && to == models.TaskStatusCompleted:
		return true
	case from == to:
		return true
	}
	return false
}

// UpdateTask applies an update to a task. A rejected status change
// inserts an audit comment and fails; an accepted one stamps the
// lifecycle timestamps, notifies the customer, and runs the project
// completion check.
func (s *Service) UpdateTask(ctx context.Context, taskID uuid.UUID, update Update) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get project: %w", err)
	}

	statusChanged := false
	oldStatus := task.Status

	if update.Status != nil {
		newStatus := *update.Status

		if !transitionAllowed(oldStatus, newStatus) {
			s.recordRejectedTransition(ctx, task, project, oldStatus, newStatus)
			metrics.TaskTransitions.WithLabelValues("rejected").Inc()
			return nil, &InvalidTransitionError{From: oldStatus, To: newStatus}
		}

		if newStatus != oldStatus {
			statusChanged = true
			s.applyTransition(task, newStatus)
		}
	}

	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Issue != nil {
		task.Issue = *update.Issue
	}
	if update.Criticality != nil {
		task.Criticality = *update.Criticality
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if statusChanged {
		metrics.TaskTransitions.WithLabelValues("applied").Inc()
		s.notifyCustomer(task, project)
		s.checkProjectCompletion(ctx, project)
	}

	return task, nil
}

// applyTransition moves the task to its new status and stamps the
// lifecycle timestamps
func (s *Service) applyTransition(task *models.Task, newStatus models.TaskStatus) {
	now := s.now()

	switch newStatus {
	case models.TaskStatusInProgress:
		task.StartedAt = &now
	case models.TaskStatusCompleted:
		task.CompletedAt = &now
		if task.StartedAt != nil {
			task.TotalDuration += int64(now.Sub(*task.StartedAt).Seconds())
		}
	}

	task.Status = newStatus
}

// recordRejectedTransition inserts the audit comment for an invalid
// status change attempt
func (s *Service) recordRejectedTransition(ctx context.Context, task *models.Task, project *models.Project, from, to models.TaskStatus) {
	projectName := "Unknown"
	if project != nil {
		projectName = project.Name
	}

	comment := &models.TaskComment{
		TaskID:      task.ID,
		ProjectName: projectName,
		Comment:     fmt.Sprintf("Invalid status change attempted from '%s' to '%s'.", from, to),
	}

	if err := s.store.CreateTaskComment(ctx, comment); err != nil {
		log.Error().
			Err(err).
			Str("task_id", task.ID.String()).
			Msg("Failed to record rejected transition")
	}
}

// notifyCustomer publishes the customer notification for a task
// entering In Progress or Completed
func (s *Service) notifyCustomer(task *models.Task, project *models.Project) {
	if project == nil || project.CustomerEmail == "" {
		return
	}

	var subject, body string

	switch task.Status {
	case models.TaskStatusInProgress:
		subject = notify.TaskInProgressSubject(task.Title)
		body = notify.TaskInProgressBody(task.Title, project.Name)
	case models.TaskStatusCompleted:
		subject = notify.TaskCompletedSubject(task.Title)
		body = notify.TaskCompletedBody(task.Title, project.Name)
	default:
		return
	}

	s.notifier.Send(notify.KindTaskStatus, []string{project.CustomerEmail}, subject, body)
}

// checkProjectCompletion flips the project to Completed once every
// task is completed, then notifies the manager and owner users
func (s *Service) checkProjectCompletion(ctx context.Context, project *models.Project) {
	if project == nil {
		return
	}

	allTasks, err := s.store.ListProjectTasks(ctx, project.ID)
	if err != nil {
		log.Error().Err(err).Str("project_id", project.ID.String()).Msg("Failed to list project tasks")
		return
	}

	if len(allTasks) == 0 {
		return
	}
	for _, t := range allTasks {
		if t.Status != models.TaskStatusCompleted {
			return
		}
	}

	if project.Status != models.ProjectStatusCompleted {
		project.Status = models.ProjectStatusCompleted
		project.CompletionPercentage = 100
		if err := s.store.UpdateProject(ctx, project); err != nil {
			log.Error().Err(err).Str("project_id", project.ID.String()).Msg("Failed to mark project completed")
			return
		}

		log.Info().
			Str("project_id", project.ID.String()).
			Str("project", project.Name).
			Msg("Project completed")
	}

	s.notifyProjectCompleted(ctx, project)
}

// notifyProjectCompleted mails the technical manager and every
// owner-role user, deduplicated by email
func (s *Service) notifyProjectCompleted(ctx context.Context, project *models.Project) {
	var recipients []string
	seen := make(map[string]bool)

	managerEmail := ""
	if project.ManagerID != nil {
		manager, err := s.store.GetUser(ctx, *project.ManagerID)
		if err == nil && manager.Email != "" {
			managerEmail = manager.Email
			recipients = append(recipients, manager.Email)
			seen[manager.Email] = true
		}
	}

	owners, err := s.store.ListOwnerUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list owner users")
	} else {
		for _, owner := range owners {
			if owner.Email != "" && !seen[owner.Email] {
				recipients = append(recipients, owner.Email)
				seen[owner.Email] = true
			}
		}
	}

	if len(recipients) == 0 {
		return
	}

	subject := notify.ProjectCompletedSubject(project.Name)
	body := notify.ProjectCompletedBody(project.Name, managerEmail)

	s.notifier.Send(notify.KindProjectCompleted, recipients, subject, body)
}
