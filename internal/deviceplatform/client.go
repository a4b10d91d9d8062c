package deviceplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const pageSize = 100

// APIError is a non-2xx response from the device platform
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("device platform: status %d: %s", e.StatusCode, e.Message)
}

// Client is a stateless HTTP client for the device-management
// platform. Every call takes an explicit bearer token; the client
// holds no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new device platform client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login authenticates with username/password and returns a token pair
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}

	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &pair); err != nil {
		return nil, err
	}

	return &pair, nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", "", body, &pair); err != nil {
		return nil, err
	}

	return &pair, nil
}

// CreateTenant creates a tenant. The use case is stored in the
// tenant's additional info.
func (c *Client) CreateTenant(ctx context.Context, token, title, profileID, useCase, email string) (*Tenant, error) {
	tenant := Tenant{
		Title: title,
		Email: email,
	}
	if profileID != "" {
		tenant.TenantProfileID = &EntityID{ID: profileID, EntityType: "TENANT_PROFILE"}
	}
	if useCase != "" {
		tenant.AdditionalInfo = map[string]interface{}{"useCase": useCase}
	}

	var created Tenant
	if err := c.do(ctx, http.MethodPost, "/api/tenant", token, tenant, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateTenant updates a tenant's title and profile
func (c *Client) UpdateTenant(ctx context.Context, token, tenantID, title, profileID string) (*Tenant, error) {
	tenant := Tenant{
		ID:    &EntityID{ID: tenantID, EntityType: "TENANT"},
		Title: title,
	}
	if profileID != "" {
		tenant.TenantProfileID = &EntityID{ID: profileID, EntityType: "TENANT_PROFILE"}
	}

	var updated Tenant
	if err := c.do(ctx, http.MethodPost, "/api/tenant", token, tenant, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// ListTenants lists all tenants, walking every page
func (c *Client) ListTenants(ctx context.Context, token string) ([]Tenant, error) {
	return fetchAllPages[Tenant](ctx, c, token, "/api/tenants", nil)
}

// ListTenantProfiles lists all tenant profiles
func (c *Client) ListTenantProfiles(ctx context.Context, token string) ([]TenantProfile, error) {
	return fetchAllPages[TenantProfile](ctx, c, token, "/api/tenantProfiles", nil)
}

// CreateTenantProfile creates a tenant profile
func (c *Client) CreateTenantProfile(ctx context.Context, token, name, description string) (*TenantProfile, error) {
	profile := TenantProfile{
		Name:        name,
		Description: description,
	}

	var created TenantProfile
	if err := c.do(ctx, http.MethodPost, "/api/tenantProfile", token, profile, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// CreateTenantAdmin creates a tenant-admin user. The platform's own
// activation mail is suppressed when sendActivationMail is false.
func (c *Client) CreateTenantAdmin(ctx context.Context, token, tenantID, email, firstName, lastName string, sendActivationMail bool) (*User, error) {
	user := User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Authority: AuthorityTenantAdmin,
		TenantID:  &EntityID{ID: tenantID, EntityType: "TENANT"},
	}

	path := "/api/user?sendActivationMail=" + strconv.FormatBool(sendActivationMail)

	var created User
	if err := c.do(ctx, http.MethodPost, path, token, user, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// GetUser gets a user by id
func (c *Client) GetUser(ctx context.Context, token, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/user/"+url.PathEscape(userID), token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTenantUsers lists all users belonging to a tenant
func (c *Client) ListTenantUsers(ctx context.Context, token, tenantID string) ([]User, error) {
	return fetchAllPages[User](ctx, c, token, "/api/tenant/"+url.PathEscape(tenantID)+"/users", nil)
}

// ListCustomerUsers lists all users belonging to a customer
func (c *Client) ListCustomerUsers(ctx context.Context, token, customerID string) ([]User, error) {
	return fetchAllPages[User](ctx, c, token, "/api/customer/"+url.PathEscape(customerID)+"/users", nil)
}

// GetActivationLink fetches the activation link for a user. The
// platform returns the link as plain text.
func (c *Client) GetActivationLink(ctx context.Context, token, userID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/user/"+url.PathEscape(userID)+"/activationLink", token, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("device platform: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("device platform: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return strings.TrimSpace(string(body)), nil
}

// GetUserToken issues an impersonation token for a user
func (c *Client) GetUserToken(ctx context.Context, token, userID string) (string, error) {
	var pair TokenPair
	if err := c.do(ctx, http.MethodGet, "/api/user/"+url.PathEscape(userID)+"/token", token, nil, &pair); err != nil {
		return "", err
	}
	return pair.Token, nil
}

// SetUserCredentialsEnabled enables or disables a user's credentials
func (c *Client) SetUserCredentialsEnabled(ctx context.Context, token, userID string, enabled bool) error {
	path := "/api/user/" + url.PathEscape(userID) + "/userCredentialsEnabled?userCredentialsEnabled=" + strconv.FormatBool(enabled)
	return c.do(ctx, http.MethodPost, path, token, nil, nil)
}

// fetchAllPages walks the platform's {data, hasNext} pagination until
// hasNext is false
func fetchAllPages[T any](ctx context.Context, c *Client, token, path string, params url.Values) ([]T, error) {
	var all []T

	page := 0
	hasNext := true

	for hasNext {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		q.Set("pageSize", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))

		var res pageResponse[T]
		if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), token, nil, &res); err != nil {
			return nil, fmt.Errorf("fetch page %d of %s: %w", page, path, err)
		}

		all = append(all, res.Data...)
		hasNext = res.HasNext
		page++
	}

	return all, nil
}

// newRequest builds a request with the platform auth header
func (c *Client) newRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Authorization", "Bearer "+token)
	}

	return req, nil
}

// do executes a request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("device platform: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("device platform: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := platformErrorMessage(data)
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Device platform request failed")
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("device platform: decode response: %w", err)
	}

	return nil
}

// platformErrorMessage extracts the platform's error message field,
// falling back to the raw body
func platformErrorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(data)
}
