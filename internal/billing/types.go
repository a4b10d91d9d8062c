package billing

// Subscription is a subscription record from the billing platform
type Subscription struct {
	SubscriptionID      string  `json:"subscription_id"`
	CustomerID          string  `json:"customer_id"`
	CustomerName        string  `json:"customer_name"`
	Email               string  `json:"email"`
	PlanName            string  `json:"plan_name"`
	PlanCode            string  `json:"plan_code"`
	Status              string  `json:"status"`
	Amount              float64 `json:"amount"`
	CurrencySymbol      string  `json:"currency_symbol"`
	CurrentTermStartsAt string  `json:"current_term_starts_at"`
	CurrentTermEndsAt   string  `json:"current_term_ends_at"`
	Interval            int     `json:"interval"`
	IntervalUnit        string  `json:"interval_unit"`
}

// Product is a product record from the billing platform
type Product struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Plan is a rate plan record from the billing platform
type Plan struct {
	PlanCode       string  `json:"plan_code"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ProductID      string  `json:"product_id"`
	RecurringPrice float64 `json:"recurring_price"`
	SetupFee       float64 `json:"setup_fee"`
	Interval       int     `json:"interval"`
	IntervalUnit   string  `json:"interval_unit"`
	BillingCycles  int     `json:"billing_cycles"`
	TrialPeriod    int     `json:"trial_period"`
	Status         string  `json:"status"`
}

type subscriptionsPage struct {
	Subscriptions []Subscription `json:"subscriptions"`
	PageContext   pageContext    `json:"page_context"`
}

type productsPage struct {
	Products    []Product   `json:"products"`
	PageContext pageContext `json:"page_context"`
}

type plansPage struct {
	Plans       []Plan      `json:"plans"`
	PageContext pageContext `json:"page_context"`
}

type pageContext struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	HasMorePage bool `json:"has_more_page"`
}
