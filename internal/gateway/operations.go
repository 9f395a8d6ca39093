package gateway

import (
	"context"

	apperrors "github.com/rentfolio/portal-server-go/internal/errors"
	"github.com/rentfolio/portal-server-go/internal/model"
)

// Each platform operation is a named GraphQL document with a fixed variable
// shape. The portal treats them as opaque request/response contracts.

const loginQuery = `
mutation Login($email: String!, $password: String!, $clientIp: String, $userAgent: String) {
  login(email: $email, password: $password, clientIp: $clientIp, userAgent: $userAgent) {
    token
    user { id email firstName lastName phone avatarUrl roles tenantProfile { unitId leaseStart leaseEnd monthlyRentCents achAuthorized } landlordProfile { companyName propertyCount payoutAccount } }
  }
}`

const googleLoginQuery = `
mutation GoogleLogin($code: String!, $clientIp: String, $userAgent: String) {
  googleLogin(code: $code, clientIp: $clientIp, userAgent: $userAgent) {
    token
    user { id email firstName lastName phone avatarUrl roles tenantProfile { unitId leaseStart leaseEnd monthlyRentCents achAuthorized } landlordProfile { companyName propertyCount payoutAccount } }
  }
}`

const updateProfileQuery = `
mutation UpdateProfile($input: UpdateProfileInput!) {
  updateProfile(input: $input) {
    id email firstName lastName phone avatarUrl roles
  }
}`

const changePasswordQuery = `
mutation ChangePassword($currentPassword: String!, $newPassword: String!) {
  changePassword(currentPassword: $currentPassword, newPassword: $newPassword) { success }
}`

const updateAchProfileQuery = `
mutation UpdateAchProfile($input: AchProfileInput!) {
  updateAchProfile(input: $input) {
    bankName routingNumber accountNumberTail accountType autopayEnabled
  }
}`

const propertiesQuery = `
query Properties {
  properties {
    id ownerId managerId title addressLine1 addressLine2 city state zip
    bedrooms bathrooms rentCents status imageUrls sortOrder createdAt
  }
}`

const createPropertyQuery = `
mutation CreateProperty($input: CreatePropertyInput!) {
  createProperty(input: $input) {
    id ownerId title addressLine1 city state zip bedrooms bathrooms rentCents status sortOrder createdAt
  }
}`

const reorderPropertiesQuery = `
mutation ReorderProperties($ids: [ID!]!) {
  reorderProperties(ids: $ids) { success }
}`

const maintenanceRequestsQuery = `
query MaintenanceRequests {
  maintenanceRequests {
    id propertyId tenantId category description urgent status photoUrls createdAt resolvedAt
  }
}`

const createMaintenanceRequestQuery = `
mutation CreateMaintenanceRequest($input: CreateMaintenanceRequestInput!) {
  createMaintenanceRequest(input: $input) {
    id propertyId tenantId category description urgent status createdAt
  }
}`

const paymentsQuery = `
query Payments {
  payments {
    id tenantId propertyId amountCents method status memo paidAt createdAt
  }
}`

const makePaymentQuery = `
mutation MakePayment($input: MakePaymentInput!) {
  makePayment(input: $input) {
    id tenantId propertyId amountCents method status createdAt
  }
}`

const dashboardSummaryQuery = `
query DashboardSummary {
  dashboardSummary {
    propertyCount vacantCount openMaintenance pendingPayments
    monthRevenueCents overdueTenantCount activeUserCount nextPaymentDueCents
  }
}`

// LoginPayload is the credential-exchange result. Both fields present means
// success; an absent payload is a failed login, not an error.
type LoginPayload struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginPayload, error) {
	var result struct {
		Login *LoginPayload `json:"login"`
	}
	err := c.Do(ctx, "Login", loginQuery, map[string]any{
		"email":     email,
		"password":  password,
		"clientIp":  clientIP,
		"userAgent": userAgent,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Login == nil || result.Login.Token == "" {
		return nil, apperrors.EmptyResult("Login")
	}
	return result.Login, nil
}

func (c *Client) LoginWithGoogle(ctx context.Context, code, clientIP, userAgent string) (*LoginPayload, error) {
	var result struct {
		GoogleLogin *LoginPayload `json:"googleLogin"`
	}
	err := c.Do(ctx, "GoogleLogin", googleLoginQuery, map[string]any{
		"code":      code,
		"clientIp":  clientIP,
		"userAgent": userAgent,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.GoogleLogin == nil || result.GoogleLogin.Token == "" {
		return nil, apperrors.EmptyResult("GoogleLogin")
	}
	return result.GoogleLogin, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch model.UserPatch) (*model.User, error) {
	var result struct {
		UpdateProfile *model.User `json:"updateProfile"`
	}
	err := c.Do(ctx, "UpdateProfile", updateProfileQuery, map[string]any{"input": patch}, &result)
	if err != nil {
		return nil, err
	}
	if result.UpdateProfile == nil {
		return nil, apperrors.EmptyResult("UpdateProfile")
	}
	return result.UpdateProfile, nil
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.Do(ctx, "ChangePassword", changePasswordQuery, map[string]any{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

func (c *Client) UpdateAchProfile(ctx context.Context, input model.AchProfile) (*model.AchProfile, error) {
	var result struct {
		UpdateAchProfile *model.AchProfile `json:"updateAchProfile"`
	}
	err := c.Do(ctx, "UpdateAchProfile", updateAchProfileQuery, map[string]any{"input": input}, &result)
	if err != nil {
		return nil, err
	}
	if result.UpdateAchProfile == nil {
		return nil, apperrors.EmptyResult("UpdateAchProfile")
	}
	return result.UpdateAchProfile, nil
}

func (c *Client) Properties(ctx context.Context) ([]model.Property, error) {
	var result struct {
		Properties []model.Property `json:"properties"`
	}
	if err := c.Do(ctx, "Properties", propertiesQuery, nil, &result); err != nil {
		return nil, err
	}
	return result.Properties, nil
}

// CreatePropertyInput is the fixed variable shape of CreateProperty.
type CreatePropertyInput struct {
	Title        string  `json:"title"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	RentCents    int64   `json:"rentCents"`
}

func (c *Client) CreateProperty(ctx context.Context, input CreatePropertyInput) (*model.Property, error) {
	var result struct {
		CreateProperty *model.Property `json:"createProperty"`
	}
	err := c.Do(ctx, "CreateProperty", createPropertyQuery, map[string]any{"input": input}, &result)
	if err != nil {
		return nil, err
	}
	if result.CreateProperty == nil {
		return nil, apperrors.EmptyResult("CreateProperty")
	}
	return result.CreateProperty, nil
}

// ReorderProperties persists a drag-reorder: ids is the property ID list in
// its new display order.
func (c *Client) ReorderProperties(ctx context.Context, ids []string) error {
	return c.Do(ctx, "ReorderProperties", reorderPropertiesQuery, map[string]any{"ids": ids}, nil)
}

func (c *Client) MaintenanceRequests(ctx context.Context) ([]model.MaintenanceRequest, error) {
	var result struct {
		MaintenanceRequests []model.MaintenanceRequest `json:"maintenanceRequests"`
	}
	if err := c.Do(ctx, "MaintenanceRequests", maintenanceRequestsQuery, nil, &result); err != nil {
		return nil, err
	}
	return result.MaintenanceRequests, nil
}

type CreateMaintenanceRequestInput struct {
	PropertyID  string   `json:"propertyId"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Urgent      bool     `json:"urgent"`
	PhotoURLs   []string `json:"photoUrls,omitempty"`
}

func (c *Client) CreateMaintenanceRequest(ctx context.Context, input CreateMaintenanceRequestInput) (*model.MaintenanceRequest, error) {
	var result struct {
		CreateMaintenanceRequest *model.MaintenanceRequest `json:"createMaintenanceRequest"`
	}
	err := c.Do(ctx, "CreateMaintenanceRequest", createMaintenanceRequestQuery, map[string]any{"input": input}, &result)
	if err != nil {
		return nil, err
	}
	if result.CreateMaintenanceRequest == nil {
		return nil, apperrors.EmptyResult("CreateMaintenanceRequest")
	}
	return result.CreateMaintenanceRequest, nil
}

func (c *Client) Payments(ctx context.Context) ([]model.Payment, error) {
	var result struct {
		Payments []model.Payment `json:"payments"`
	}
	if err := c.Do(ctx, "Payments", paymentsQuery, nil, &result); err != nil {
		return nil, err
	}
	return result.Payments, nil
}

type MakePaymentInput struct {
	PropertyID  string `json:"propertyId"`
	AmountCents int64  `json:"amountCents"`
	Method      string `json:"method"`
	Memo        string `json:"memo,omitempty"`
}

func (c *Client) MakePayment(ctx context.Context, input MakePaymentInput) (*model.Payment, error) {
	var result struct {
		MakePayment *model.Payment `json:"makePayment"`
	}
	err := c.Do(ctx, "MakePayment", makePaymentQuery, map[string]any{"input": input}, &result)
	if err != nil {
		return nil, err
	}
	if result.MakePayment == nil {
		return nil, apperrors.EmptyResult("MakePayment")
	}
	return result.MakePayment, nil
}

func (c *Client) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	var result struct {
		DashboardSummary *model.DashboardSummary `json:"dashboardSummary"`
	}
	if err := c.Do(ctx, "DashboardSummary", dashboardSummaryQuery, nil, &result); err != nil {
		return nil, err
	}
	if result.DashboardSummary == nil {
		return nil, apperrors.EmptyResult("DashboardSummary")
	}
	return result.DashboardSummary, nil
}
