package deviceplatform

// EntityID is the platform's typed entity reference
type EntityID struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
}

// Tenant represents a tenant on the device platform
type Tenant struct {
	ID              *EntityID              `json:"id,omitempty"`
	CreatedTime     int64                  `json:"createdTime,omitempty"`
	Title           string                 `json:"title"`
	Email           string                 `json:"email,omitempty"`
	TenantProfileID *EntityID              `json:"tenantProfileId,omitempty"`
	AdditionalInfo  map[string]interface{} `json:"additionalInfo,omitempty"`
}

// TenantProfile represents a tenant profile on the device platform
type TenantProfile struct {
	ID          *EntityID `json:"id,omitempty"`
	CreatedTime int64     `json:"createdTime,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Default     bool      `json:"default,omitempty"`
}

// User represents a user account on the device platform
type User struct {
	ID             *EntityID              `json:"id,omitempty"`
	CreatedTime    int64                  `json:"createdTime,omitempty"`
	Email          string                 `json:"email"`
	FirstName      string                 `json:"firstName,omitempty"`
	LastName       string                 `json:"lastName,omitempty"`
	Authority      string                 `json:"authority"`
	TenantID       *EntityID              `json:"tenantId,omitempty"`
	CustomerID     *EntityID              `json:"customerId,omitempty"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// User authorities
const (
	AuthorityTenantAdmin  = "TENANT_ADMIN"
	AuthorityCustomerUser = "CUSTOMER_USER"
)

// TokenPair is an access/refresh token pair issued by the platform
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// pageResponse is the platform's pagination envelope
type pageResponse[T any] struct {
	Data    []T  `json:"data"`
	HasNext bool `json:"hasNext"`
}
