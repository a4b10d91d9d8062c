package deviceplatform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc@example.com", body["username"])
		assert.Equal(t, "secret", body["password"])

		json.NewEncoder(w).Encode(TokenPair{Token: "tok", RefreshToken: "ref"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	pair, err := client.Login(context.Background(), "svc@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", pair.Token)
	assert.Equal(t, "ref", pair.RefreshToken)
}

func TestCreateTenant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenant", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("X-Authorization"))

		var tenant Tenant
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tenant))
		assert.Equal(t, "Acme Corp", tenant.Title)
		require.NotNil(t, tenant.TenantProfileID)
		assert.Equal(t, "profile-1", tenant.TenantProfileID.ID)
		assert.Equal(t, "Smart Metering", tenant.AdditionalInfo["useCase"])

		tenant.ID = &EntityID{ID: "tenant-1", EntityType: "TENANT"}
		json.NewEncoder(w).Encode(tenant)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	created, err := client.CreateTenant(context.Background(), "tok", "Acme Corp", "profile-1", "Smart Metering", "acme@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", created.ID.ID)
}

func TestCreateTenantAdminSuppressesActivationMail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("sendActivationMail"))

		var user User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&user))
		assert.Equal(t, AuthorityTenantAdmin, user.Authority)
		require.NotNil(t, user.TenantID)
		assert.Equal(t, "tenant-1", user.TenantID.ID)

		user.ID = &EntityID{ID: "user-1", EntityType: "USER"}
		json.NewEncoder(w).Encode(user)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	user, err := client.CreateTenantAdmin(context.Background(), "tok", "tenant-1", "admin@example.com", "Technical Admin", "Acme Corp", false)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID.ID)
}

func TestListTenantsWalksAllPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenants", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)

		res := pageResponse[Tenant]{
			Data: []Tenant{
				{ID: &EntityID{ID: "tenant-" + strconv.Itoa(page), EntityType: "TENANT"}},
			},
			HasNext: page < 2,
		}
		json.NewEncoder(w).Encode(res)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	tenants, err := client.ListTenants(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, tenants, 3)
	assert.Equal(t, "tenant-0", tenants[0].ID.ID)
	assert.Equal(t, "tenant-2", tenants[2].ID.ID)
}

func TestGetActivationLinkPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user/user-1/activationLink", r.URL.Path)
		w.Write([]byte("https://devices.example.com/activate?token=abc\n"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	link, err := client.GetActivationLink(context.Background(), "tok", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://devices.example.com/activate?token=abc", link)
}

func TestAPIErrorCarriesPlatformMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Tenant with such title already exists"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	_, err := client.CreateTenant(context.Background(), "tok", "Acme Corp", "", "", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Tenant with such title already exists", apiErr.Message)
}
