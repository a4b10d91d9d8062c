package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/provision"
)

// HandleProvision provisions a tenant from a billing subscription
func (s *RESTServer) HandleProvision(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscription_id")

	var req struct {
		ManagerID       *uuid.UUID  `json:"managerId"`
		TaskTemplateIDs []uuid.UUID `json:"taskTemplateIds"`
	}

	// Body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.provisioner.Provision(r.Context(), subscriptionID, req.ManagerID, req.TaskTemplateIDs)
	if err != nil {
		s.respondProvisionError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// respondProvisionError maps provisioning errors onto HTTP statuses.
// A tenant-create failure on the device platform surfaces as a client
// error because the usual cause is a duplicate tenant title; mapping
// configuration problems are server errors.
func (s *RESTServer) respondProvisionError(w http.ResponseWriter, err error) {
	var notFound *provision.NotFoundError
	var configErr *provision.ConfigurationError
	var externalErr *provision.ExternalServiceError

	switch {
	case errors.As(err, &notFound):
		s.respondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &configErr):
		s.respondError(w, http.StatusInternalServerError, configErr.Error())
	case errors.As(err, &externalErr):
		if externalErr.Operation == "create tenant" {
			s.respondError(w, http.StatusBadRequest, "Failed to create tenant on the device platform (or it already exists).")
			return
		}
		s.respondError(w, http.StatusInternalServerError, externalErr.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}
