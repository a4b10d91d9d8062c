package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
)

const perPage = 200

// Client is an HTTP client for the billing platform API. Access
// tokens come from the token source; the organization id is sent on
// every request.
type Client struct {
	apiURL     string
	orgID      string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewClient creates a billing API client
func NewClient(cfg config.BillingConfig, tokens *TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		orgID:  cfg.OrganizationID,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListSubscriptions lists all subscriptions, walking every page
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var all []Subscription

	page := 1
	for {
		var res subscriptionsPage
		if err := c.get(ctx, "/subscriptions", page, &res); err != nil {
			return nil, err
		}

		all = append(all, res.Subscriptions...)
		if !res.PageContext.HasMorePage {
			return all, nil
		}
		page++
	}
}

// ListProducts lists all products
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var all []Product

	page := 1
	for {
		var res productsPage
		if err := c.get(ctx, "/products", page, &res); err != nil {
			return nil, err
		}

		all = append(all, res.Products...)
		if !res.PageContext.HasMorePage {
			return all, nil
		}
		page++
	}
}

// ListPlans lists all plans
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var all []Plan

	page := 1
	for {
		var res plansPage
		if err := c.get(ctx, "/plans", page, &res); err != nil {
			return nil, err
		}

		all = append(all, res.Plans...)
		if !res.PageContext.HasMorePage {
			return all, nil
		}
		page++
	}
}

func (c *Client) get(ctx context.Context, path string, page int, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("X-com-zoho-subscriptions-organizationid", c.orgID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("billing: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("billing: %s page %d: status %d: %s", path, page, resp.StatusCode, billingErrorMessage(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("billing: decode %s response: %w", path, err)
	}

	return nil
}

func billingErrorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(data)
}
