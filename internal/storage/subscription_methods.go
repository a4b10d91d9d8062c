package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tenant-hub/tenant-hub-server/internal/models"
)

// ========== Subscription Methods ==========

// UpsertSubscription inserts or updates a subscription keyed on its
// external subscription id
func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := `
        INSERT INTO subscriptions (
            id, created_at, updated_at, subscription_id, customer_id,
            customer_name, email, plan_name, plan_code, status, amount,
            currency_symbol, current_term_starts_at, current_term_ends_at,
            "interval", interval_unit, is_provisioned
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
        )
        ON CONFLICT (subscription_id) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            customer_id = EXCLUDED.customer_id,
            customer_name = EXCLUDED.customer_name,
            email = EXCLUDED.email,
            plan_name = EXCLUDED.plan_name,
            plan_code = EXCLUDED.plan_code,
            status = EXCLUDED.status,
            amount = EXCLUDED.amount,
            currency_symbol = EXCLUDED.currency_symbol,
            current_term_starts_at = EXCLUDED.current_term_starts_at,
            current_term_ends_at = EXCLUDED.current_term_ends_at,
            "interval" = EXCLUDED."interval",
            interval_unit = EXCLUDED.interval_unit,
            is_provisioned = EXCLUDED.is_provisioned`

	_, err := s.getDB().ExecContext(ctx, query,
		sub.ID, sub.CreatedAt, sub.UpdatedAt, sub.SubscriptionID, sub.CustomerID,
		sub.CustomerName, sub.Email, sub.PlanName, sub.PlanCode, sub.Status,
		sub.Amount, sub.CurrencySymbol, sub.CurrentTermStartsAt,
		sub.CurrentTermEndsAt, sub.Interval, sub.IntervalUnit, sub.IsProvisioned,
	)

	return err
}

// GetSubscription gets a subscription by its external subscription id
func (s *PostgresStore) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	query := `
        SELECT id, created_at, updated_at, subscription_id, customer_id,
               customer_name, email, plan_name, plan_code, status, amount,
               currency_symbol, current_term_starts_at, current_term_ends_at,
               "interval", interval_unit, is_provisioned
        FROM subscriptions
        WHERE subscription_id = $1`

	sub := &models.Subscription{}
	err := s.getDB().QueryRowContext(ctx, query, subscriptionID).Scan(
		&sub.ID, &sub.CreatedAt, &sub.UpdatedAt, &sub.SubscriptionID,
		&sub.CustomerID, &sub.CustomerName, &sub.Email, &sub.PlanName,
		&sub.PlanCode, &sub.Status, &sub.Amount, &sub.CurrencySymbol,
		&sub.CurrentTermStartsAt, &sub.CurrentTermEndsAt, &sub.Interval,
		&sub.IntervalUnit, &sub.IsProvisioned,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return sub, err
}

// ListSubscriptions lists subscriptions, optionally excluding those
// already provisioned
func (s *PostgresStore) ListSubscriptions(ctx context.Context, includeProvisioned bool) ([]*models.Subscription, error) {
	query := `
        SELECT id, created_at, updated_at, subscription_id, customer_id,
               customer_name, email, plan_name, plan_code, status, amount,
               currency_symbol, current_term_starts_at, current_term_ends_at,
               "interval", interval_unit, is_provisioned
        FROM subscriptions`

	if !includeProvisioned {
		query += ` WHERE is_provisioned = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		err := rows.Scan(
			&sub.ID, &sub.CreatedAt, &sub.UpdatedAt, &sub.SubscriptionID,
			&sub.CustomerID, &sub.CustomerName, &sub.Email, &sub.PlanName,
			&sub.PlanCode, &sub.Status, &sub.Amount, &sub.CurrencySymbol,
			&sub.CurrentTermStartsAt, &sub.CurrentTermEndsAt, &sub.Interval,
			&sub.IntervalUnit, &sub.IsProvisioned,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// SetSubscriptionProvisioned flips the provisioned flag
func (s *PostgresStore) SetSubscriptionProvisioned(ctx context.Context, subscriptionID string, provisioned bool) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE subscriptions SET is_provisioned = $2, updated_at = $3 WHERE subscription_id = $1`,
		subscriptionID, provisioned, time.Now(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ========== Billing Catalog Methods ==========

// UpsertBillingProduct inserts or updates a billing product
func (s *PostgresStore) UpsertBillingProduct(ctx context.Context, product *models.BillingProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	query := `
        INSERT INTO billing_products (
            id, created_at, updated_at, product_id, name, product_code,
            description, status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
        ON CONFLICT (product_id) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            name = EXCLUDED.name,
            product_code = EXCLUDED.product_code,
            description = EXCLUDED.description,
            status = EXCLUDED.status`

	_, err := s.getDB().ExecContext(ctx, query,
		product.ID, product.CreatedAt, product.UpdatedAt, product.ProductID,
		product.Name, product.ProductCode, product.Description, product.Status,
	)

	return err
}

// ListBillingProducts lists billing products, optionally by status
func (s *PostgresStore) ListBillingProducts(ctx context.Context, status string) ([]*models.BillingProduct, error) {
	query := `
        SELECT id, created_at, updated_at, product_id, name, product_code,
               description, status
        FROM billing_products`

	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.BillingProduct
	for rows.Next() {
		product := &models.BillingProduct{}
		err := rows.Scan(
			&product.ID, &product.CreatedAt, &product.UpdatedAt,
			&product.ProductID, &product.Name, &product.ProductCode,
			&product.Description, &product.Status,
		)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// UpsertBillingPlan inserts or updates a billing plan
func (s *PostgresStore) UpsertBillingPlan(ctx context.Context, plan *models.BillingPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	now := time.Now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	query := `
        INSERT INTO billing_plans (
            id, created_at, updated_at, plan_code, product_id, name,
            description, recurring_price, setup_fee, "interval",
            interval_unit, billing_cycles, trial_period, status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
        )
        ON CONFLICT (plan_code) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            product_id = EXCLUDED.product_id,
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            recurring_price = EXCLUDED.recurring_price,
            setup_fee = EXCLUDED.setup_fee,
            "interval" = EXCLUDED."interval",
            interval_unit = EXCLUDED.interval_unit,
            billing_cycles = EXCLUDED.billing_cycles,
            trial_period = EXCLUDED.trial_period,
            status = EXCLUDED.status`

	_, err := s.getDB().ExecContext(ctx, query,
		plan.ID, plan.CreatedAt, plan.UpdatedAt, plan.PlanCode, plan.ProductID,
		plan.Name, plan.Description, plan.RecurringPrice, plan.SetupFee,
		plan.Interval, plan.IntervalUnit, plan.BillingCycles, plan.TrialPeriod,
		plan.Status,
	)

	return err
}

// ListBillingPlans lists billing plans, optionally by status
func (s *PostgresStore) ListBillingPlans(ctx context.Context, status string) ([]*models.BillingPlan, error) {
	query := `
        SELECT id, created_at, updated_at, plan_code, product_id, name,
               description, recurring_price, setup_fee, "interval",
               interval_unit, billing_cycles, trial_period, status
        FROM billing_plans`

	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.BillingPlan
	for rows.Next() {
		plan := &models.BillingPlan{}
		err := rows.Scan(
			&plan.ID, &plan.CreatedAt, &plan.UpdatedAt, &plan.PlanCode,
			&plan.ProductID, &plan.Name, &plan.Description,
			&plan.RecurringPrice, &plan.SetupFee, &plan.Interval,
			&plan.IntervalUnit, &plan.BillingCycles, &plan.TrialPeriod,
			&plan.Status,
		)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}
