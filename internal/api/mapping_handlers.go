package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// ========== Use-case mapping handlers ==========

// HandleListUseCaseMappings lists use-case mappings in evaluation
// order
func (s *RESTServer) HandleListUseCaseMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.store.ListUseCaseMappings(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"usecases": mappings,
		"total":    len(mappings),
	})
}

// HandleCreateUseCaseMapping creates a use-case mapping
func (s *RESTServer) HandleCreateUseCaseMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		PlanPrefix  string `json:"planPrefix"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping := &models.UseCaseMapping{
		Name:        req.Name,
		Description: req.Description,
		PlanPrefix:  req.PlanPrefix,
	}

	if err := s.store.CreateUseCaseMapping(r.Context(), mapping); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "use case already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, mapping)
}

// HandleDeleteUseCaseMapping deletes a use-case mapping
func (s *RESTServer) HandleDeleteUseCaseMapping(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid mapping id")
		return
	}

	if err := s.store.DeleteUseCaseMapping(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "use case not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ========== Plan-profile mapping handlers ==========

// HandleListPlanProfileMappings lists plan-profile mappings in
// evaluation order
func (s *RESTServer) HandleListPlanProfileMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.store.ListPlanProfileMappings(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"mappings": mappings,
		"total":    len(mappings),
	})
}

// HandleCreatePlanProfileMapping creates a plan-profile mapping
func (s *RESTServer) HandleCreatePlanProfileMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanKeyword string `json:"planKeyword" validate:"required"`
		ProfileName string `json:"profileName" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping := &models.PlanProfileMapping{
		PlanKeyword: req.PlanKeyword,
		ProfileName: req.ProfileName,
	}

	if err := s.store.CreatePlanProfileMapping(r.Context(), mapping); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "plan keyword already mapped")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, mapping)
}

// HandleDeletePlanProfileMapping deletes a plan-profile mapping
func (s *RESTServer) HandleDeletePlanProfileMapping(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid mapping id")
		return
	}

	if err := s.store.DeletePlanProfileMapping(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "mapping not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ========== Device profile handlers ==========

// HandleListDeviceProfiles lists the local device profile mirror
func (s *RESTServer) HandleListDeviceProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListDeviceProfiles(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"total":    len(profiles),
	})
}

// HandleSyncDeviceProfiles pulls tenant profiles from the device
// platform into the local mirror
func (s *RESTServer) HandleSyncDeviceProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := s.serviceToken(ctx)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	remote, err := s.devices.ListTenantProfiles(ctx, token)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	count := 0
	for _, p := range remote {
		if p.ID == nil {
			continue
		}

		profile := &models.DeviceProfile{
			ProfileID:   p.ID.ID,
			Name:        p.Name,
			Description: p.Description,
		}
		if err := s.store.UpsertDeviceProfile(ctx, profile); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		count++
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profiles synced",
		"synced":  count,
	})
}

// HandleSetDefaultDeviceProfile marks a profile as the default,
// clearing any previous default
func (s *RESTServer) HandleSetDefaultDeviceProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := s.store.SetDefaultDeviceProfile(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "default set"})
}

// HandleDeleteDeviceProfile deletes a profile from the local mirror
func (s *RESTServer) HandleDeleteDeviceProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := s.store.DeleteDeviceProfile(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
