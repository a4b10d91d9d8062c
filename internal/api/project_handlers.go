package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
	"github.com/tenant-hub/tenant-hub-server/internal/tasks"
)

// ========== Project handlers ==========

// HandleListProjects lists projects
func (s *RESTServer) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	projects, total, err := s.store.ListProjects(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    total,
	})
}

// HandleGetProject gets a project with its tasks
func (s *RESTServer) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "project not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	projectTasks, err := s.store.ListProjectTasks(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"project": project,
		"tasks":   projectTasks,
	})
}

// HandleAssignProject assigns a technical manager to a project
func (s *RESTServer) HandleAssignProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	project, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "project not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	project.ManagerID = &userID
	if err := s.store.UpdateProject(r.Context(), project); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, project)
}

// ========== Task handlers ==========

// HandleCreateTask creates a task on a project
func (s *RESTServer) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "project not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
		Criticality string `json:"criticality" validate:"oneof=Low Medium High"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Criticality == "" {
		req.Criticality = models.CriticalityMedium
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusPending,
		Criticality: req.Criticality,
	}

	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, task)
}

// HandleCreateTaskFromTemplate creates a Pending task on a project
// from a task template
func (s *RESTServer) HandleCreateTaskFromTemplate(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	templateID, err := uuid.Parse(chi.URLParam(r, "template_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "project not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	template, err := s.store.GetTaskTemplate(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "template not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       template.Title,
		Description: template.Description,
		Status:      models.TaskStatusPending,
		Criticality: template.Criticality,
	}

	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, task)
}

// HandleUpdateTask updates a task under the lifecycle guard
func (s *RESTServer) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req struct {
		Status      *string `json:"status"`
		Description *string `json:"description"`
		Issue       *string `json:"issue"`
		Criticality *string `json:"criticality"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := tasks.Update{
		Description: req.Description,
		Issue:       req.Issue,
		Criticality: req.Criticality,
	}

	if req.Status != nil {
		status, err := models.ParseTaskStatus(*req.Status)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Status = &status
	}

	task, err := s.tasks.UpdateTask(r.Context(), id, update)
	if err != nil {
		var invalid *tasks.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			s.respondError(w, http.StatusBadRequest, invalid.Error())
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "task not found")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusOK, task)
}

// HandleListTaskComments lists a task's audit comments
func (s *RESTServer) HandleListTaskComments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	comments, err := s.store.ListTaskComments(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"total":    len(comments),
	})
}

// ========== Task template handlers ==========

// HandleListTaskTemplates lists task templates
func (s *RESTServer) HandleListTaskTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTaskTemplates(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"total":     len(templates),
	})
}

// HandleCreateTaskTemplate creates a task template
func (s *RESTServer) HandleCreateTaskTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
		Criticality string `json:"criticality" validate:"oneof=Low Medium High"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Criticality == "" {
		req.Criticality = models.CriticalityMedium
	}

	template := &models.TaskTemplate{
		Title:       req.Title,
		Description: req.Description,
		Criticality: req.Criticality,
	}

	if err := s.store.CreateTaskTemplate(r.Context(), template); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, template)
}

// HandleDeleteTaskTemplate deletes a task template
func (s *RESTServer) HandleDeleteTaskTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	if err := s.store.DeleteTaskTemplate(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "template not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
