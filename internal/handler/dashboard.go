package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/gateway"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/table"
)

// DashboardHandler composes the per-role dashboard screens from platform
// data. Each collection renders through a table instance; its view state is
// driven entirely by the request's query parameters.
type DashboardHandler struct {
	gw       *gateway.Client
	notifier session.Notifier
}

func NewDashboardHandler(gw *gateway.Client, notifier session.Notifier) *DashboardHandler {
	return &DashboardHandler{gw: gw, notifier: notifier}
}

// Register attaches the read-side screens to the portal router.
func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/properties", h.Properties)
	r.Post("/properties/reorder", h.ReorderProperties)
	r.Get("/maintenance", h.Maintenance)
	r.Get("/payments", h.Payments)
}

func (h *DashboardHandler) gatewayFor(store *session.Store) *gateway.Client {
	return h.gw.WithTokenSource(store.Token)
}

func propertyColumns() []table.Column[model.Property] {
	return []table.Column[model.Property]{
		{Key: "title", Header: "Property", Value: func(p model.Property) any { return p.Title }, Sortable: true, Filterable: true},
		{Key: "addressLine1", Header: "Address", Value: func(p model.Property) any { return p.AddressLine1 }, Filterable: true},
		{Key: "city", Header: "City", Value: func(p model.Property) any { return p.City }, Sortable: true, Filterable: true, Hideable: true},
		{Key: "state", Header: "State", Value: func(p model.Property) any { return p.State }, Hideable: true},
		{Key: "zip", Header: "Zip", Value: func(p model.Property) any { return p.Zip }, Hideable: true},
		{Key: "bedrooms", Header: "Beds", Value: func(p model.Property) any { return p.Bedrooms }, Sortable: true, Hideable: true},
		{Key: "bathrooms", Header: "Baths", Value: func(p model.Property) any { return p.Bathrooms }, Hideable: true},
		{Key: "rentCents", Header: "Rent", Value: func(p model.Property) any { return p.RentCents }, Sortable: true},
		{Key: "status", Header: "Status", Value: func(p model.Property) any { return string(p.Status) }, Sortable: true, Filterable: true},
		{Key: "createdAt", Header: "Added", Value: func(p model.Property) any { return p.CreatedAt }, Sortable: true, Hideable: true},
	}
}

func maintenanceColumns() []table.Column[model.MaintenanceRequest] {
	return []table.Column[model.MaintenanceRequest]{
		{Key: "category", Header: "Category", Value: func(m model.MaintenanceRequest) any { return m.Category }, Sortable: true, Filterable: true},
		{Key: "description", Header: "Description", Value: func(m model.MaintenanceRequest) any { return m.Description }, Filterable: true},
		{Key: "urgent", Header: "Urgent", Value: func(m model.MaintenanceRequest) any { return m.Urgent }, Sortable: true},
		{Key: "status", Header: "Status", Value: func(m model.MaintenanceRequest) any { return string(m.Status) }, Sortable: true, Filterable: true},
		{Key: "createdAt", Header: "Opened", Value: func(m model.MaintenanceRequest) any { return m.CreatedAt }, Sortable: true},
		{Key: "resolvedAt", Header: "Resolved", Value: func(m model.MaintenanceRequest) any {
			if m.ResolvedAt == nil {
				return nil
			}
			return *m.ResolvedAt
		}, Sortable: true, Hideable: true},
	}
}

func paymentColumns() []table.Column[model.Payment] {
	return []table.Column[model.Payment]{
		{Key: "amountCents", Header: "Amount", Value: func(p model.Payment) any { return p.AmountCents }, Sortable: true},
		{Key: "method", Header: "Method", Value: func(p model.Payment) any { return p.Method }, Filterable: true, Hideable: true},
		{Key: "status", Header: "Status", Value: func(p model.Payment) any { return string(p.Status) }, Sortable: true, Filterable: true},
		{Key: "memo", Header: "Memo", Value: func(p model.Payment) any { return p.Memo }, Hideable: true},
		{Key: "paidAt", Header: "Paid", Value: func(p model.Payment) any {
			if p.PaidAt == nil {
				return nil
			}
			return *p.PaidAt
		}, Sortable: true},
		{Key: "createdAt", Header: "Created", Value: func(p model.Payment) any { return p.CreatedAt }, Sortable: true},
	}
}

func newPropertiesTable(persist table.ReorderFunc[model.Property]) (*table.Table[model.Property], error) {
	return table.New(propertyColumns(),
		table.WithRowID(func(p model.Property) string { return p.ID }),
		table.WithSelection[model.Property](),
		table.WithReorder(persist),
		table.WithPagination[model.Property](DefaultPageSize, 10, 25, 50),
		table.WithColumnToggle[model.Property](),
		table.WithFiltering[model.Property](),
		table.WithSorting[model.Property](),
		table.WithEmptyMessage[model.Property]("No properties yet"),
	)
}

func newMaintenanceTable() (*table.Table[model.MaintenanceRequest], error) {
	return table.New(maintenanceColumns(),
		table.WithRowID(func(m model.MaintenanceRequest) string { return m.ID }),
		table.WithPagination[model.MaintenanceRequest](DefaultPageSize, 10, 25, 50),
		table.WithColumnToggle[model.MaintenanceRequest](),
		table.WithFiltering[model.MaintenanceRequest](),
		table.WithSorting[model.MaintenanceRequest](),
		table.WithEmptyMessage[model.MaintenanceRequest]("No maintenance requests"),
	)
}

func newPaymentsTable() (*table.Table[model.Payment], error) {
	return table.New(paymentColumns(),
		table.WithRowID(func(p model.Payment) string { return p.ID }),
		table.WithPagination[model.Payment](DefaultPageSize, 10, 25, 50),
		table.WithColumnToggle[model.Payment](),
		table.WithFiltering[model.Payment](),
		table.WithSorting[model.Payment](),
		table.WithEmptyMessage[model.Payment]("No payments recorded"),
	)
}

// GET /portal/dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	gw := h.gatewayFor(store)

	summary, err := gw.DashboardSummary(r.Context())
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to load dashboard summary")
		writeError(w, err)
		return
	}

	role := user.PrimaryRole()
	response := map[string]any{
		"role":    role,
		"summary": summary,
	}

	switch role {
	case model.RoleTenant:
		response["sections"] = []string{"maintenance", "payments"}
	case model.RoleLandlord:
		response["sections"] = []string{"properties", "maintenance", "payments"}
	case model.RoleManager, model.RoleAdmin:
		response["sections"] = []string{"properties", "maintenance", "payments", "ops"}
	}

	writeJSON(w, http.StatusOK, response)
}

// GET /portal/properties
func (h *DashboardHandler) Properties(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	if !canManageProperties(user) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Properties are not available for your role"})
		return
	}

	rows, err := h.gatewayFor(store).Properties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	tbl, err := newPropertiesTable(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to build properties table")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	tbl.SetRows(rows)
	applyTableParams(tbl, ParseTableParams(r))

	writeJSON(w, http.StatusOK, tbl.View())
}

// POST /portal/properties/reorder
//
// The move is applied locally first and the new order is pushed upstream;
// a failed push rolls the order back and surfaces as a notification.
func (h *DashboardHandler) ReorderProperties(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())
	user, ok := requireUser(w, store)
	if !ok {
		return
	}
	if !canManageProperties(user) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Properties are not available for your role"})
		return
	}

	var req struct {
		OldIndex int `json:"oldIndex"`
		NewIndex int `json:"newIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	gw := h.gatewayFor(store)
	rows, err := gw.Properties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	persisted := false
	tbl, err := newPropertiesTable(func(oldIndex, newIndex int, reordered []model.Property) error {
		ids := make([]string, len(reordered))
		for i, p := range reordered {
			ids[i] = p.ID
		}
		if err := gw.ReorderProperties(r.Context(), ids); err != nil {
			return err
		}
		persisted = true
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build properties table")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	tbl.SetRows(rows)

	if err := tbl.Move(req.OldIndex, req.NewIndex); err != nil {
		log.Warn().
			Err(err).
			Int("oldIndex", req.OldIndex).
			Int("newIndex", req.NewIndex).
			Str("visitorId", store.VisitorID()).
			Msg("property reorder rejected")
		h.notifier.Notify(r.Context(), store.VisitorID(), "error", "Could not save the new order. The previous order was restored.")
	}

	order := tbl.Rows()
	ids := make([]string, len(order))
	for i, p := range order {
		ids[i] = p.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"persisted": persisted,
		"order":     ids,
	})
}

// GET /portal/maintenance
func (h *DashboardHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	rows, err := h.gatewayFor(store).MaintenanceRequests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	tbl, err := newMaintenanceTable()
	if err != nil {
		log.Error().Err(err).Msg("failed to build maintenance table")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	tbl.SetRows(rows)
	applyTableParams(tbl, ParseTableParams(r))

	writeJSON(w, http.StatusOK, tbl.View())
}

// GET /portal/payments
func (h *DashboardHandler) Payments(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	rows, err := h.gatewayFor(store).Payments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	tbl, err := newPaymentsTable()
	if err != nil {
		log.Error().Err(err).Msg("failed to build payments table")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	tbl.SetRows(rows)
	applyTableParams(tbl, ParseTableParams(r))

	writeJSON(w, http.StatusOK, tbl.View())
}

func canManageProperties(user *model.User) bool {
	return user.HasRole(model.RoleLandlord) || user.HasRole(model.RoleManager) || user.HasRole(model.RoleAdmin)
}
