package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/metrics"
	"github.com/tenant-hub/tenant-hub-server/internal/models"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// BillingAPI is the slice of the billing client the syncer needs
type BillingAPI interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListPlans(ctx context.Context) ([]Plan, error)
}

// SyncResult summarizes one sync run
type SyncResult struct {
	Subscriptions int `json:"subscriptions"`
	Products      int `json:"products"`
	Plans         int `json:"plans"`
	Provisioned   int `json:"provisioned"`
}

// Syncer mirrors the billing platform's subscriptions, products and
// plans into the local store. A subscription is marked provisioned
// when a local project already exists for its customer, matched by
// project name or customer email.
type Syncer struct {
	store  storage.Store
	client BillingAPI
}

// NewSyncer creates a billing syncer
func NewSyncer(store storage.Store, client BillingAPI) *Syncer {
	return &Syncer{
		store:  store,
		client: client,
	}
}

// Sync runs one full sync of subscriptions, products and plans
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	contacts, err := s.store.ListProjectContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list project contacts: %w", err)
	}

	projectNames := make(map[string]bool, len(contacts))
	projectEmails := make(map[string]bool, len(contacts))
	for _, contact := range contacts {
		if contact.Name != "" {
			projectNames[strings.ToLower(contact.Name)] = true
		}
		if contact.CustomerEmail != "" {
			projectEmails[strings.ToLower(contact.CustomerEmail)] = true
		}
	}

	subscriptions, err := s.client.ListSubscriptions(ctx)
	if err != nil {
		metrics.BillingSyncRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	for _, sub := range subscriptions {
		provisioned := projectNames[strings.ToLower(sub.CustomerName)] ||
			projectEmails[strings.ToLower(sub.Email)]

		record := &models.Subscription{
			SubscriptionID:      sub.SubscriptionID,
			CustomerID:          sub.CustomerID,
			CustomerName:        sub.CustomerName,
			Email:               sub.Email,
			PlanName:            sub.PlanName,
			PlanCode:            sub.PlanCode,
			Status:              sub.Status,
			Amount:              sub.Amount,
			CurrencySymbol:      sub.CurrencySymbol,
			CurrentTermStartsAt: sub.CurrentTermStartsAt,
			CurrentTermEndsAt:   sub.CurrentTermEndsAt,
			Interval:            sub.Interval,
			IntervalUnit:        sub.IntervalUnit,
			IsProvisioned:       provisioned,
		}

		if err := s.store.UpsertSubscription(ctx, record); err != nil {
			return nil, fmt.Errorf("upsert subscription %s: %w", sub.SubscriptionID, err)
		}

		result.Subscriptions++
		if provisioned {
			result.Provisioned++
		}
	}

	products, err := s.client.ListProducts(ctx)
	if err != nil {
		metrics.BillingSyncRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list products: %w", err)
	}

	for _, product := range products {
		record := &models.BillingProduct{
			ProductID:   product.ProductID,
			Name:        product.Name,
			ProductCode: product.ProductCode,
			Description: product.Description,
			Status:      product.Status,
		}
		if err := s.store.UpsertBillingProduct(ctx, record); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", product.ProductID, err)
		}
		result.Products++
	}

	plans, err := s.client.ListPlans(ctx)
	if err != nil {
		metrics.BillingSyncRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list plans: %w", err)
	}

	for _, plan := range plans {
		record := &models.BillingPlan{
			PlanCode:       plan.PlanCode,
			ProductID:      plan.ProductID,
			Name:           plan.Name,
			Description:    plan.Description,
			RecurringPrice: plan.RecurringPrice,
			SetupFee:       plan.SetupFee,
			Interval:       plan.Interval,
			IntervalUnit:   plan.IntervalUnit,
			BillingCycles:  plan.BillingCycles,
			TrialPeriod:    plan.TrialPeriod,
			Status:         plan.Status,
		}
		if err := s.store.UpsertBillingPlan(ctx, record); err != nil {
			return nil, fmt.Errorf("upsert plan %s: %w", plan.PlanCode, err)
		}
		result.Plans++
	}

	metrics.BillingSyncRuns.WithLabelValues("success").Inc()

	log.Info().
		Int("subscriptions", result.Subscriptions).
		Int("products", result.Products).
		Int("plans", result.Plans).
		Int("provisioned", result.Provisioned).
		Msg("Billing sync completed")

	return result, nil
}

// Run starts the periodic sync loop until the context is cancelled.
// One sync runs immediately on start.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sync(ctx); err != nil {
		log.Error().Err(err).Msg("Billing sync failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				log.Error().Err(err).Msg("Billing sync failed")
			}
		}
	}
}
