package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentfolio/portal-server-go/internal/gateway"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/model"
	"github.com/rentfolio/portal-server-go/internal/session"
)

type stubAuth struct {
	payload *gateway.LoginPayload
	err     error
}

func (s stubAuth) Login(context.Context, string, string, string, string) (*gateway.LoginPayload, error) {
	return s.payload, s.err
}

func (s stubAuth) LoginWithGoogle(context.Context, string, string, string) (*gateway.LoginPayload, error) {
	return s.payload, s.err
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps map[string]model.Snapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{snaps: make(map[string]model.Snapshot)}
}

func (m *memSnapshots) Load(_ context.Context, visitorID string) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[visitorID], nil
}

func (m *memSnapshots) Save(_ context.Context, visitorID string, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[visitorID] = snap
	return nil
}

func (m *memSnapshots) Delete(_ context.Context, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, visitorID)
	return nil
}

func (m *memSnapshots) DeleteExpired(context.Context) (int64, error) { return 0, nil }
func (m *memSnapshots) Ping(context.Context) error                   { return nil }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return "", ""
	}
	return n.levels[len(n.levels)-1], n.messages[len(n.messages)-1]
}

func testUser(roles ...model.Role) model.User {
	if len(roles) == 0 {
		roles = []model.Role{model.RoleTenant}
	}
	return model.User{
		ID:        "user-1",
		Email:     "jordan@example.com",
		FirstName: "Jordan",
		LastName:  "Lee",
		Roles:     roles,
		TenantProfile: &model.TenantProfile{
			UnitID:        "unit-12",
			AchAuthorized: true,
		},
	}
}

// authedStore builds a store that has already completed a login.
func authedStore(t *testing.T, user model.User) *session.Store {
	t.Helper()
	store := session.NewStore("visitor-1", session.Deps{
		Auth:      stubAuth{payload: &gateway.LoginPayload{Token: "platform-token", User: user}},
		Snapshots: newMemSnapshots(),
		Notifier:  &recordingNotifier{},
		TTL:       time.Hour,
	})
	result := store.Login(context.Background(), user.Email, "secret", "127.0.0.1", "test")
	require.True(t, result.Success)
	return store
}

func anonymousStore() *session.Store {
	return session.NewStore("visitor-1", session.Deps{
		Auth:      stubAuth{err: nil},
		Snapshots: newMemSnapshots(),
		Notifier:  &recordingNotifier{},
		TTL:       time.Hour,
	})
}

func withStore(r *http.Request, store *session.Store) *http.Request {
	return r.WithContext(middleware.WithStore(r.Context(), store.VisitorID(), store))
}

// graphqlServer fakes the platform API: responses is keyed by operation name
// and returned as the data payload.
func graphqlServer(t *testing.T, responses map[string]any, errOps map[string]string) (*httptest.Server, *gateway.Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OperationName string `json:"operationName"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if msg, ok := errOps[req.OperationName]; ok {
			json.NewEncoder(w).Encode(map[string]any{
				"errors": []map[string]string{{"message": msg}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": responses[req.OperationName],
		})
	}))
	t.Cleanup(server.Close)
	return server, gateway.NewClient(server.URL, 5*time.Second, nil)
}

func sampleProperties() []map[string]any {
	return []map[string]any{
		{"id": "p-1", "title": "Oak House", "city": "Springfield", "rentCents": 180000, "status": "OCCUPIED", "sortOrder": 0, "createdAt": "2024-09-01T00:00:00Z"},
		{"id": "p-2", "title": "Birch Flat", "city": "Shelbyville", "rentCents": 120000, "status": "VACANT", "sortOrder": 1, "createdAt": "2024-09-02T00:00:00Z"},
		{"id": "p-3", "title": "Cedar Loft", "city": "Springfield", "rentCents": 210000, "status": "LISTED", "sortOrder": 2, "createdAt": "2024-09-03T00:00:00Z"},
	}
}

func TestLoginSuccess(t *testing.T) {
	h := NewAuthHandler()
	store := session.NewStore("visitor-1", session.Deps{
		Auth:      stubAuth{payload: &gateway.LoginPayload{Token: "tok", User: testUser()}},
		Snapshots: newMemSnapshots(),
		Notifier:  &recordingNotifier{},
		TTL:       time.Hour,
	})

	body := strings.NewReader(`{"email":"jordan@example.com","password":"secret"}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/login", body), store)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result session.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, session.RouteDashboard, result.RedirectTo)
	assert.NotNil(t, store.User())
}

func TestLoginRequiresCredentials(t *testing.T) {
	h := NewAuthHandler()

	req := withStore(httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"jordan@example.com"}`)), anonymousStore())
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	h := NewAuthHandler()

	req := withStore(httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"not-an-email","password":"secret"}`)), anonymousStore())
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeAnonymous(t *testing.T) {
	h := NewAuthHandler()

	req := withStore(httptest.NewRequest(http.MethodGet, "/me", nil), anonymousStore())
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["authenticated"])
}

func TestMeAuthenticated(t *testing.T) {
	h := NewAuthHandler()
	store := authedStore(t, testUser())

	req := withStore(httptest.NewRequest(http.MethodGet, "/me", nil), store)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "TENANT", body["primaryRole"])
	assert.NotEmpty(t, body["expiresAt"])
}

func TestLogoutReturnsLoginRoute(t *testing.T) {
	h := NewAuthHandler()
	store := authedStore(t, testUser())

	req := withStore(httptest.NewRequest(http.MethodPost, "/logout", nil), store)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, session.RouteLogin, body["redirectTo"])
	assert.Nil(t, store.User())
}

func TestPropertiesRendersTableView(t *testing.T) {
	_, gw := graphqlServer(t, map[string]any{
		"Properties": map[string]any{"properties": sampleProperties()},
	}, nil)
	h := NewDashboardHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleLandlord))

	req := withStore(httptest.NewRequest(http.MethodGet, "/properties?sort=rentCents:desc&pageSize=25", nil), store)
	rec := httptest.NewRecorder()
	h.Properties(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Rows []struct {
			ID string `json:"id"`
		} `json:"rows"`
		TotalRows int `json:"totalRows"`
		PageSize  int `json:"pageSize"`
		PageCount int `json:"pageCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 3, view.TotalRows)
	assert.Equal(t, 25, view.PageSize)
	assert.Equal(t, 1, view.PageCount)
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "p-3", view.Rows[0].ID)
	assert.Equal(t, "p-1", view.Rows[1].ID)
	assert.Equal(t, "p-2", view.Rows[2].ID)
}

func TestPropertiesForbiddenForTenant(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	h := NewDashboardHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleTenant))

	req := withStore(httptest.NewRequest(http.MethodGet, "/properties", nil), store)
	rec := httptest.NewRecorder()
	h.Properties(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReorderPropertiesPersists(t *testing.T) {
	_, gw := graphqlServer(t, map[string]any{
		"Properties":        map[string]any{"properties": sampleProperties()},
		"ReorderProperties": map[string]any{"reorderProperties": map[string]bool{"success": true}},
	}, nil)
	h := NewDashboardHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleLandlord))

	body := strings.NewReader(`{"oldIndex":2,"newIndex":0}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/properties/reorder", body), store)
	rec := httptest.NewRecorder()
	h.ReorderProperties(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Persisted bool     `json:"persisted"`
		Order     []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Persisted)
	assert.Equal(t, []string{"p-3", "p-1", "p-2"}, result.Order)
}

func TestReorderPropertiesRollsBackOnFailure(t *testing.T) {
	_, gw := graphqlServer(t, map[string]any{
		"Properties": map[string]any{"properties": sampleProperties()},
	}, map[string]string{
		"ReorderProperties": "persistence unavailable",
	})
	notifier := &recordingNotifier{}
	h := NewDashboardHandler(gw, notifier)
	store := authedStore(t, testUser(model.RoleLandlord))

	body := strings.NewReader(`{"oldIndex":2,"newIndex":0}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/properties/reorder", body), store)
	rec := httptest.NewRecorder()
	h.ReorderProperties(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Persisted bool     `json:"persisted"`
		Order     []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Persisted)
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, result.Order)

	level, _ := notifier.last()
	assert.Equal(t, "error", level)
}

func TestHandlersRejectSessionClearedAfterGate(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	dashboards := NewDashboardHandler(gw, &recordingNotifier{})
	forms := NewFormsHandler(gw, &recordingNotifier{})

	// A logout from another tab lands after the auth gate but before the
	// handler body reads the user.
	store := authedStore(t, testUser(model.RoleLandlord))
	store.Logout(context.Background())

	calls := []struct {
		name string
		call func(w http.ResponseWriter, r *http.Request)
		req  *http.Request
	}{
		{"dashboard", dashboards.Dashboard, httptest.NewRequest(http.MethodGet, "/dashboard", nil)},
		{"properties", dashboards.Properties, httptest.NewRequest(http.MethodGet, "/properties", nil)},
		{"reorder", dashboards.ReorderProperties, httptest.NewRequest(http.MethodPost, "/properties/reorder", strings.NewReader(`{"oldIndex":0,"newIndex":1}`))},
		{"create property", forms.CreateProperty, httptest.NewRequest(http.MethodPost, "/properties", strings.NewReader(`{}`))},
		{"payment", forms.MakePayment, httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{}`))},
		{"profile", forms.UpdateProfile, httptest.NewRequest(http.MethodPatch, "/profile", strings.NewReader(`{}`))},
	}

	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.call(rec, withStore(tc.req, store))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestCreatePropertyValidation(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	h := NewFormsHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleLandlord))

	body := strings.NewReader(`{"title":"","addressLine1":"1 Main St","city":"Springfield","state":"IL","zip":"62704","rentCents":0}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/properties", body), store)
	rec := httptest.NewRecorder()
	h.CreateProperty(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "title")
	assert.Contains(t, resp.Fields, "rentCents")
	assert.NotContains(t, resp.Fields, "city")
}

func TestMakePaymentRequiresTenantRole(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	h := NewFormsHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleLandlord))

	body := strings.NewReader(`{"propertyId":"p-1","amountCents":180000,"method":"ACH"}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/payments", body), store)
	rec := httptest.NewRecorder()
	h.MakePayment(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMakePaymentRejectsUnauthorizedAch(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	h := NewFormsHandler(gw, &recordingNotifier{})

	user := testUser(model.RoleTenant)
	user.TenantProfile.AchAuthorized = false
	store := authedStore(t, user)

	body := strings.NewReader(`{"propertyId":"p-1","amountCents":180000,"method":"ACH"}`)
	req := withStore(httptest.NewRequest(http.MethodPost, "/payments", body), store)
	rec := httptest.NewRecorder()
	h.MakePayment(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "method")
}

func TestUpdateAchProfileRejectsBadRoutingNumber(t *testing.T) {
	_, gw := graphqlServer(t, nil, nil)
	h := NewFormsHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleTenant))

	body := strings.NewReader(`{"bankName":"First Bank","routingNumber":"123456789","accountNumber":"000123","accountType":"CHECKING"}`)
	req := withStore(httptest.NewRequest(http.MethodPut, "/profile/ach", body), store)
	rec := httptest.NewRecorder()
	h.UpdateAchProfile(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "routingNumber")
}

func TestUpdateProfileMergesIntoSession(t *testing.T) {
	_, gw := graphqlServer(t, map[string]any{
		"UpdateProfile": map[string]any{"updateProfile": map[string]any{
			"id": "user-1", "email": "jordan@example.com", "firstName": "Jo", "lastName": "Lee", "roles": []string{"TENANT"},
		}},
	}, nil)
	h := NewFormsHandler(gw, &recordingNotifier{})
	store := authedStore(t, testUser(model.RoleTenant))

	body := strings.NewReader(`{"firstName":"Jo"}`)
	req := withStore(httptest.NewRequest(http.MethodPatch, "/profile", body), store)
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jo", store.User().FirstName)
	assert.Equal(t, "Lee", store.User().LastName)
}

func TestParseTableParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/properties?sort=rentCents:desc,title&filter=city:spring&hide=zip,bedrooms&page=1&pageSize=25", nil)

	params := ParseTableParams(req)

	require.Len(t, params.Sorts, 2)
	assert.Equal(t, "rentCents", params.Sorts[0].Key)
	assert.True(t, params.Sorts[0].Desc)
	assert.Equal(t, "title", params.Sorts[1].Key)
	assert.False(t, params.Sorts[1].Desc)
	assert.Equal(t, "spring", params.Filters["city"])
	assert.Equal(t, []string{"zip", "bedrooms"}, params.Hidden)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 25, params.PageSize)
}

func TestParseTableParamsDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/properties", nil)

	params := ParseTableParams(req)

	assert.Empty(t, params.Sorts)
	assert.Empty(t, params.Filters)
	assert.Equal(t, -1, params.Page)
	assert.Equal(t, 0, params.PageSize)
}

func TestParseTableParamsRejectsOversizedPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/properties?pageSize=1000", nil)

	params := ParseTableParams(req)

	assert.Equal(t, 0, params.PageSize)
}
