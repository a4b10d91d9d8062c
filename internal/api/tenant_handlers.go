package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/deviceplatform"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// serviceToken logs in with the configured service account and
// returns a platform token
func (s *RESTServer) serviceToken(ctx context.Context) (string, error) {
	pair, err := s.devices.Login(ctx, s.config.DevicePlatform.Username, s.config.DevicePlatform.Password)
	if err != nil {
		return "", fmt.Errorf("device platform login: %w", err)
	}
	return pair.Token, nil
}

// HandleListTenants lists external tenants that have a local project.
// As a side effect, local projects whose tenant no longer exists on
// the platform are pruned together with their tasks.
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := s.serviceToken(ctx)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	tenants, err := s.devices.ListTenants(ctx, token)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	valid := make(map[string]bool, len(tenants))
	for _, t := range tenants {
		if t.ID != nil {
			valid[t.ID.ID] = true
		}
	}

	s.pruneOrphanedProjects(ctx, valid)

	linked, err := s.store.ListProjectTenantIDs(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	linkedSet := make(map[string]bool, len(linked))
	for _, id := range linked {
		linkedSet[id] = true
	}

	out := make([]deviceplatform.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if t.ID != nil && linkedSet[t.ID.ID] {
			out = append(out, t)
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": out,
		"total":   len(out),
	})
}

// pruneOrphanedProjects deletes projects (tasks first) whose tenant
// id is not in the valid set
func (s *RESTServer) pruneOrphanedProjects(ctx context.Context, valid map[string]bool) {
	tenantIDs, err := s.store.ListProjectTenantIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list project tenant ids")
		return
	}

	for _, tenantID := range tenantIDs {
		if tenantID == "" || valid[tenantID] {
			continue
		}

		project, err := s.store.GetProjectByTenantID(ctx, tenantID)
		if err != nil {
			continue
		}

		if err := s.store.DeleteProjectTasks(ctx, project.ID); err != nil {
			log.Error().Err(err).Str("project", project.Name).Msg("Failed to delete orphaned project tasks")
			continue
		}
		if err := s.store.DeleteProject(ctx, project.ID); err != nil {
			log.Error().Err(err).Str("project", project.Name).Msg("Failed to delete orphaned project")
			continue
		}

		log.Info().
			Str("project", project.Name).
			Str("tenant_id", tenantID).
			Msg("Pruned orphaned project")
	}
}

// HandleListUnlinkedTenants lists external tenants that have no local
// project
func (s *RESTServer) HandleListUnlinkedTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := s.serviceToken(ctx)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	tenants, err := s.devices.ListTenants(ctx, token)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	linked, err := s.store.ListProjectTenantIDs(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	linkedSet := make(map[string]bool, len(linked))
	for _, id := range linked {
		linkedSet[id] = true
	}

	unlinked := make([]deviceplatform.Tenant, 0)
	for _, t := range tenants {
		if t.ID != nil && !linkedSet[t.ID.ID] {
			unlinked = append(unlinked, t)
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": unlinked,
		"total":   len(unlinked),
	})
}

// HandleLinkTenant creates a local project for an existing external
// tenant
func (s *RESTServer) HandleLinkTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")

	var req struct {
		ManagerID *uuid.UUID `json:"managerId"`
		UseCase   string     `json:"useCase"`
		Plan      string     `json:"plan"`
	}
	// Body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.GetProjectByTenantID(ctx, tenantID); err == nil {
		s.respondError(w, http.StatusConflict, "tenant already linked to a project")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := s.serviceToken(ctx)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	tenants, err := s.devices.ListTenants(ctx, token)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	var tenant *deviceplatform.Tenant
	for i := range tenants {
		if tenants[i].ID != nil && tenants[i].ID.ID == tenantID {
			tenant = &tenants[i]
			break
		}
	}
	if tenant == nil {
		s.respondError(w, http.StatusNotFound, "tenant not found on the device platform")
		return
	}

	useCase := req.UseCase
	if useCase == "" {
		if uc, ok := tenant.AdditionalInfo["useCase"].(string); ok {
			useCase = uc
		}
	}

	project := &models.Project{
		Name:          tenant.Title,
		Description:   fmt.Sprintf("Project for %s", tenant.Title),
		TenantID:      tenantID,
		ManagerID:     req.ManagerID,
		Status:        models.ProjectStatusActive,
		UseCase:       useCase,
		Plan:          req.Plan,
		CustomerEmail: tenant.Email,
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, project)
}

// bulkToggleUsers toggles credentials for every user of a tenant,
// skipping the oldest tenant admin so the account stays reachable
func (s *RESTServer) bulkToggleUsers(tenantID string, enabled bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	token, err := s.serviceToken(ctx)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("Bulk credential toggle failed")
		return
	}

	users, err := s.devices.ListTenantUsers(ctx, token, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list tenant users")
		return
	}

	// the oldest tenant admin stays untouched
	firstAdminID := ""
	var firstCreated int64
	for _, u := range users {
		if u.Authority != deviceplatform.AuthorityTenantAdmin || u.ID == nil {
			continue
		}
		if firstAdminID == "" || u.CreatedTime < firstCreated {
			firstAdminID = u.ID.ID
			firstCreated = u.CreatedTime
		}
	}

	count := 0
	for _, u := range users {
		if u.ID == nil || u.ID.ID == firstAdminID {
			continue
		}
		if err := s.devices.SetUserCredentialsEnabled(ctx, token, u.ID.ID, enabled); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID.ID).Msg("Failed to toggle user credentials")
			continue
		}
		count++
	}

	log.Info().
		Str("tenant_id", tenantID).
		Bool("enabled", enabled).
		Int("users", count).
		Msg("Bulk credential toggle finished")
}

// HandleActivateTenant re-enables credentials for the tenant's users
// in the background
func (s *RESTServer) HandleActivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")

	go s.bulkToggleUsers(tenantID, true)

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Activation started in background",
	})
}

// HandleDeactivateTenant disables credentials for the tenant's users
// in the background
func (s *RESTServer) HandleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")

	go s.bulkToggleUsers(tenantID, false)

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Deactivation started in background",
	})
}

// HandleScheduleDeactivation schedules a delayed bulk deactivation
func (s *RESTServer) HandleScheduleDeactivation(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")

	var req struct {
		Duration int    `json:"duration" validate:"required"`
		Unit     string `json:"unit"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Duration <= 0 {
		s.respondError(w, http.StatusBadRequest, "duration must be positive")
		return
	}
	if req.Unit == "" {
		req.Unit = "minutes"
	}

	delay := deactivationDelay(req.Duration, req.Unit)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		<-timer.C
		s.bulkToggleUsers(tenantID, false)
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message": fmt.Sprintf("Deactivation scheduled in %d %s", req.Duration, req.Unit),
	})
}

// deactivationDelay converts duration+unit to a time.Duration,
// defaulting to minutes for unknown units
func deactivationDelay(duration int, unit string) time.Duration {
	d := time.Duration(duration)

	switch {
	case strings.HasPrefix(strings.ToLower(unit), "s"):
		return d * time.Second
	case strings.HasPrefix(strings.ToLower(unit), "h"):
		return d * time.Hour
	case strings.HasPrefix(strings.ToLower(unit), "d"):
		return d * 24 * time.Hour
	default:
		return d * time.Minute
	}
}
