package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// HandleBillingSync dispatches a full billing sync in the background
func (s *RESTServer) HandleBillingSync(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := s.billing.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("Billing sync failed")
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Billing sync started",
	})
}

// HandleListSubscriptions lists stored subscriptions. Provisioned
// ones are excluded unless includeProvisioned=true.
func (s *RESTServer) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	includeProvisioned := r.URL.Query().Get("includeProvisioned") == "true"

	subscriptions, err := s.store.ListSubscriptions(r.Context(), includeProvisioned)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"total":         len(subscriptions),
	})
}

// HandleListBillingProducts lists stored billing products
func (s *RESTServer) HandleListBillingProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListBillingProducts(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

// HandleListBillingPlans lists stored billing plans
func (s *RESTServer) HandleListBillingPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListBillingPlans(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"total": len(plans),
	})
}
