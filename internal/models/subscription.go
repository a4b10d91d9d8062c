package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription mirrors a billing-platform subscription record.
// Rows are upserted by the billing syncer keyed on SubscriptionID;
// IsProvisioned flips true once a local project exists for it.
type Subscription struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	SubscriptionID string `json:"subscriptionId" db:"subscription_id"`
	CustomerID     string `json:"customerId" db:"customer_id"`
	CustomerName   string `json:"customerName" db:"customer_name"`
	Email          string `json:"email" db:"email"`

	PlanName string `json:"planName" db:"plan_name"`
	PlanCode string `json:"planCode" db:"plan_code"`

	// Status is free text from the billing platform: live, trial,
	// unpaid, past_due, cancelled, ...
	Status         string  `json:"status" db:"status"`
	Amount         float64 `json:"amount" db:"amount"`
	CurrencySymbol string  `json:"currencySymbol" db:"currency_symbol"`

	CurrentTermStartsAt string `json:"currentTermStartsAt" db:"current_term_starts_at"`
	CurrentTermEndsAt   string `json:"currentTermEndsAt" db:"current_term_ends_at"`
	Interval            int    `json:"interval" db:"interval"`
	IntervalUnit        string `json:"intervalUnit" db:"interval_unit"`

	IsProvisioned bool `json:"isProvisioned" db:"is_provisioned"`
}

// BillingProduct mirrors a billing-platform product
type BillingProduct struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	ProductID   string `json:"productId" db:"product_id"`
	Name        string `json:"name" db:"name"`
	ProductCode string `json:"productCode" db:"product_code"`
	Description string `json:"description" db:"description"`
	Status      string `json:"status" db:"status"`
}

// BillingPlan mirrors a billing-platform rate plan
type BillingPlan struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	PlanCode    string `json:"planCode" db:"plan_code"`
	ProductID   string `json:"productId" db:"product_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	RecurringPrice float64 `json:"recurringPrice" db:"recurring_price"`
	SetupFee       float64 `json:"setupFee" db:"setup_fee"`
	Interval       int     `json:"interval" db:"interval"`
	IntervalUnit   string  `json:"intervalUnit" db:"interval_unit"`
	BillingCycles  int     `json:"billingCycles" db:"billing_cycles"`
	TrialPeriod    int     `json:"trialPeriod" db:"trial_period"`

	Status string `json:"status" db:"status"`
}
