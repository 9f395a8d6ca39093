package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/audit"
	"github.com/rentfolio/portal-server-go/internal/gateway"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/util"
)

var maintenanceCategories = []string{
	"PLUMBING", "ELECTRICAL", "HVAC", "APPLIANCE", "STRUCTURAL", "PEST", "OTHER",
}

var paymentMethods = []string{"ACH", "CARD"}

var achAccountTypes = []string{"CHECKING", "SAVINGS"}

// FormsHandler owns every submit endpoint: property and maintenance
// creation, payments, and the profile screens. Submissions validate
// locally, forward to the platform, and report failures through the
// notification side channel rather than blank screens.
type FormsHandler struct {
	gw       *gateway.Client
	notifier session.Notifier
}

func NewFormsHandler(gw *gateway.Client, notifier session.Notifier) *FormsHandler {
	return &FormsHandler{gw: gw, notifier: notifier}
}

// Register attaches the submit endpoints to the portal router.
func (h *FormsHandler) Register(r chi.Router) {
	r.Post("/properties", h.CreateProperty)
	r.Post("/maintenance", h.CreateMaintenanceRequest)
	r.Post("/payments", h.MakePayment)
	r.Patch("/profile", h.UpdateProfile)
	r.Post("/profile/password", h.ChangePassword)
	r.Put("/profile/ach", h.UpdateAchProfile)
}

func (h *FormsHandler) gatewayFor(store *session.Store) *gateway.Client {
	return h.gw.WithTokenSource(store.Token)
}

// POST /portal/properties
func (h *FormsHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	if !canManageProperties(user) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Properties are not available for your role"})
		return
	}

	var input gateway.CreatePropertyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if fieldErrors := validateProperty(input); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": fieldErrors,
		})
		return
	}

	property, err := h.gatewayFor(store).CreateProperty(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to create property")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Could not create the property. Please try again.")
		writeError(w, err)
		return
	}

	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Property created")
	writeJSON(w, http.StatusCreated, property)
}

func validateProperty(input gateway.CreatePropertyInput) map[string]string {
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(input.Title) == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(input.AddressLine1) == "" {
		fieldErrors["addressLine1"] = "Address is required"
	}
	if strings.TrimSpace(input.City) == "" {
		fieldErrors["city"] = "City is required"
	}
	if strings.TrimSpace(input.State) == "" {
		fieldErrors["state"] = "State is required"
	}
	if strings.TrimSpace(input.Zip) == "" {
		fieldErrors["zip"] = "Zip is required"
	}
	if input.Bedrooms < 0 {
		fieldErrors["bedrooms"] = "Bedrooms cannot be negative"
	}
	if input.Bathrooms < 0 {
		fieldErrors["bathrooms"] = "Bathrooms cannot be negative"
	}
	if input.RentCents <= 0 {
		fieldErrors["rentCents"] = "Rent must be positive"
	}
	return fieldErrors
}

// POST /portal/maintenance
func (h *FormsHandler) CreateMaintenanceRequest(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}

	var input gateway.CreateMaintenanceRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	fieldErrors := make(map[string]string)
	if input.PropertyID == "" {
		fieldErrors["propertyId"] = "Property is required"
	}
	if strings.TrimSpace(input.Description) == "" {
		fieldErrors["description"] = "Description is required"
	}
	if input.Category == "" || !util.IsValidEnum(input.Category, maintenanceCategories) {
		fieldErrors["category"] = "Unknown category"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": fieldErrors,
		})
		return
	}

	request, err := h.gatewayFor(store).CreateMaintenanceRequest(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to create maintenance request")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Could not submit the maintenance request. Please try again.")
		writeError(w, err)
		return
	}

	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Maintenance request submitted")
	writeJSON(w, http.StatusCreated, request)
}

// POST /portal/payments
func (h *FormsHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	if !user.HasRole(model.RoleTenant) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Payments are not available for your role"})
		return
	}

	var input gateway.MakePaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	fieldErrors := make(map[string]string)
	if input.PropertyID == "" {
		fieldErrors["propertyId"] = "Property is required"
	}
	if input.AmountCents <= 0 {
		fieldErrors["amountCents"] = "Amount must be positive"
	}
	if input.Method == "" || !util.IsValidEnum(input.Method, paymentMethods) {
		fieldErrors["method"] = "Unknown payment method"
	}
	if input.Method == "ACH" && (user.TenantProfile == nil || !user.TenantProfile.AchAuthorized) {
		fieldErrors["method"] = "ACH is not set up for this account"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": fieldErrors,
		})
		return
	}

	payment, err := h.gatewayFor(store).MakePayment(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("payment failed")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Payment could not be processed. Please try again.")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventPaymentSubmit,
		UserID:    user.ID,
		VisitorID: store.VisitorID(),
		Details:   map[string]interface{}{"amountCents": input.AmountCents, "method": input.Method},
	})
	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Payment submitted")
	writeJSON(w, http.StatusCreated, payment)
}

// PATCH /portal/profile
func (h *FormsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}

	var patch model.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if patch.Email != nil && !util.IsValidEmail(*patch.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email address"})
		return
	}
	// Roles are assigned by the platform, never by the profile form.
	patch.Roles = nil

	updated, err := h.gatewayFor(store).UpdateProfile(r.Context(), patch)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to update profile")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Could not save your profile. Please try again.")
		writeError(w, err)
		return
	}

	// Keep the session's user in step with what the platform accepted.
	store.UpdateUser(r.Context(), patch)

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventProfileUpdate,
		UserID:    user.ID,
		VisitorID: store.VisitorID(),
	})
	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Profile saved")
	writeJSON(w, http.StatusOK, updated)
}

// POST /portal/profile/password
func (h *FormsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Current and new password are required"})
		return
	}
	if len(req.NewPassword) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "New password must be at least 8 characters"})
		return
	}

	if err := h.gatewayFor(store).ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("password change rejected")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Password change was rejected.")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventPasswordChange,
		UserID:    user.ID,
		VisitorID: store.VisitorID(),
	})
	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Password changed")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PUT /portal/profile/ach
func (h *FormsHandler) UpdateAchProfile(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	if !user.HasRole(model.RoleTenant) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "ACH setup is not available for your role"})
		return
	}

	var input model.AchProfile
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(input.BankName) == "" {
		fieldErrors["bankName"] = "Bank name is required"
	}
	if !util.IsValidRoutingNumber(input.RoutingNumber) {
		fieldErrors["routingNumber"] = "Invalid routing number"
	}
	if input.AccountNumber == "" {
		fieldErrors["accountNumber"] = "Account number is required"
	}
	if input.AccountType == "" || !util.IsValidEnum(input.AccountType, achAccountTypes) {
		fieldErrors["accountType"] = "Unknown account type"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": fieldErrors,
		})
		return
	}

	profile, err := h.gatewayFor(store).UpdateAchProfile(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to update ach profile")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Could not save your bank details. Please try again.")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventAchUpdate,
		UserID:    user.ID,
		VisitorID: store.VisitorID(),
	})
	h.notifier.Notify(r.Context(), store.VisitorID(), "success", "Bank details saved")
	writeJSON(w, http.StatusOK, profile)
}
