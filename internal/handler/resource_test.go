package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

func loadRules(t *testing.T) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Load("../rules/testdata/field_service.yaml")
	require.NoError(t, err)
	return rs
}

func newRouter(t *testing.T, s store.Store, logger *zap.Logger) http.Handler {
	t.Helper()
	rs := loadRules(t)
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		RegisterRoutes(r, s, rs, logger)
	})
	return r
}

func newSQLite(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

// routers returns a router per Store implementation.
func routers(t *testing.T) map[string]http.Handler {
	return map[string]http.Handler{
		"sqlite": newRouter(t, newSQLite(t), zaptest.NewLogger(t)),
		"memory": newRouter(t, store.NewMemoryStore(), zaptest.NewLogger(t)),
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createAccount(t *testing.T, h http.Handler, name, status string) map[string]any {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/accounts", map[string]any{"account_name": name, "status": status})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)
}

func TestCreateContact_MalformedAccountID(t *testing.T) {
	for name, h := range routers(t) {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/contacts", map[string]any{
				"account_id": "not-a-uuid",
				"first_name": "Ada",
				"last_name":  "Lovelace",
			})
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[validationResponse](t, rec)
			assert.Equal(t, "Invalid account ID format", body.Error)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			require.Len(t, body.Fields, 1)
			assert.Equal(t, "account_id", body.Fields[0].Field)

			list := do(t, h, http.MethodGet, "/v1/contacts", nil)
			require.Equal(t, http.StatusOK, list.Code)
			assert.Empty(t, decode[[]map[string]any](t, list))
		})
	}
}

func TestAccountCRUD(t *testing.T) {
	for name, h := range routers(t) {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/accounts", map[string]any{
				"account_name":   "Acme",
				"status":         "Active",
				"credit_limit":   "2500.50",
				"is_key_account": true,
				"unknown_key":    "ignored",
				"id":             uuid.NewString(),
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			created := decode[map[string]any](t, rec)
			id := created["id"].(string)
			assert.Equal(t, "2500.5", created["credit_limit"])
			assert.NotContains(t, created, "unknown_key")

			got := do(t, h, http.MethodGet, "/v1/accounts/"+id, nil)
			require.Equal(t, http.StatusOK, got.Code)
			assert.Equal(t, "Acme", decode[map[string]any](t, got)["account_name"])

			upd := do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"email": "ops@acme.test"})
			require.Equal(t, http.StatusOK, upd.Code, upd.Body.String())
			assert.Equal(t, "ops@acme.test", decode[map[string]any](t, upd)["email"])

			createAccount(t, h, "Globex", "Prospect")
			active := do(t, h, http.MethodGet, "/v1/accounts?status=Active", nil)
			require.Equal(t, http.StatusOK, active.Code)
			assert.Len(t, decode[[]map[string]any](t, active), 1)

			keyed := do(t, h, http.MethodGet, "/v1/accounts?is_key_account=true&page_size=5", nil)
			require.Equal(t, http.StatusOK, keyed.Code)
			assert.Len(t, decode[[]map[string]any](t, keyed), 1)

			del := do(t, h, http.MethodDelete, "/v1/accounts/"+id, nil)
			assert.Equal(t, http.StatusNoContent, del.Code)
			gone := do(t, h, http.MethodGet, "/v1/accounts/"+id, nil)
			assert.Equal(t, http.StatusNotFound, gone.Code)
		})
	}
}

func TestCreateAccount_ValidationErrors(t *testing.T) {
	h := newRouter(t, store.NewMemoryStore(), zaptest.NewLogger(t))

	rec := do(t, h, http.MethodPost, "/v1/accounts", map[string]any{
		"status": "Active",
		"email":  "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[validationResponse](t, rec)
	assert.Equal(t, "Every account needs a name.", body.Error)
	require.Len(t, body.Fields, 2)
	assert.Equal(t, rules.FieldError{Field: "account_name", Code: rules.ViolationRequired, Message: "Every account needs a name."}, body.Fields[0])
	assert.Equal(t, "email", body.Fields[1].Field)
	assert.Equal(t, rules.ViolationPattern, body.Fields[1].Code)

	rec = do(t, h, http.MethodPost, "/v1/accounts", map[string]any{
		"account_name": "Acme",
		"status":       "Dormant",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode[validationResponse](t, rec)
	assert.Equal(t, codeInvalidState, body.Fields[0].Code)

	rec = do(t, h, http.MethodPost, "/v1/accounts", map[string]any{
		"account_name":   "Acme",
		"status":         "Active",
		"is_key_account": "yes",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode[validationResponse](t, rec)
	assert.Equal(t, "is_key_account", body.Fields[0].Field)
	assert.Equal(t, codeInvalidType, body.Fields[0].Code)
}

func TestCreate_InvalidJSON(t *testing.T) {
	h := newRouter(t, store.NewMemoryStore(), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decode[map[string]string](t, rec)["code"])
}

func TestStoreErrors(t *testing.T) {
	for name, h := range routers(t) {
		t.Run(name, func(t *testing.T) {
			acct := createAccount(t, h, "Acme", "Active")

			dup := do(t, h, http.MethodPost, "/v1/accounts", map[string]any{"account_name": "Acme", "status": "Active"})
			require.Equal(t, http.StatusBadRequest, dup.Code)
			body := decode[map[string]string](t, dup)
			assert.Equal(t, "DUPLICATE", body["code"])
			assert.Equal(t, "Another account already uses this name.", body["error"])

			orphan := do(t, h, http.MethodPost, "/v1/contacts", map[string]any{
				"account_id": uuid.NewString(), "first_name": "Ada", "last_name": "Lovelace",
			})
			require.Equal(t, http.StatusBadRequest, orphan.Code)
			assert.Equal(t, "MISSING_REFERENCE", decode[map[string]string](t, orphan)["code"])

			contact := do(t, h, http.MethodPost, "/v1/contacts", map[string]any{
				"account_id": acct["id"], "first_name": "Ada", "last_name": "Lovelace",
			})
			require.Equal(t, http.StatusCreated, contact.Code, contact.Body.String())

			restricted := do(t, h, http.MethodDelete, "/v1/accounts/"+acct["id"].(string), nil)
			require.Equal(t, http.StatusBadRequest, restricted.Code)
			body = decode[map[string]string](t, restricted)
			assert.Equal(t, "MISSING_REFERENCE", body["code"])
			assert.Equal(t, "Account is still referenced by other records", body["error"])

			missing := do(t, h, http.MethodGet, "/v1/work-orders/"+uuid.NewString(), nil)
			require.Equal(t, http.StatusNotFound, missing.Code)
			assert.Equal(t, "Work Order not found", decode[map[string]string](t, missing)["error"])

			badID := do(t, h, http.MethodGet, "/v1/accounts/nope", nil)
			assert.Equal(t, http.StatusBadRequest, badID.Code)
			assert.Equal(t, "INVALID_ID", decode[map[string]string](t, badID)["code"])
		})
	}
}

func TestUpdate_StatusTransitions(t *testing.T) {
	for name, h := range routers(t) {
		t.Run(name, func(t *testing.T) {
			id := createAccount(t, h, "Acme", "Prospect")["id"].(string)

			rec := do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"status": "Closed"})
			require.Equal(t, http.StatusConflict, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.Equal(t, "INVALID_TRANSITION", body["code"])
			assert.Contains(t, body["error"], "allowed transitions are Active")

			rec = do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"status": "Active"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "Active", decode[map[string]any](t, rec)["status"])

			rec = do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"status": "Closed"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"status": "Active"})
			require.Equal(t, http.StatusConflict, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec)["error"], "final state")

			// Unchanged state is not a transition.
			rec = do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"status": "Closed", "notes": "archived"})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdate_ClearingRequiredField(t *testing.T) {
	h := newRouter(t, store.NewMemoryStore(), nil)
	id := createAccount(t, h, "Acme", "Active")["id"].(string)

	rec := do(t, h, http.MethodPatch, "/v1/accounts/"+id, map[string]any{"account_name": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[validationResponse](t, rec)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "account_name", body.Fields[0].Field)
}

func TestUpdate_TransitionOnMissingRecord(t *testing.T) {
	h := newRouter(t, store.NewMemoryStore(), nil)
	rec := do(t, h, http.MethodPatch, "/v1/accounts/"+uuid.NewString(), map[string]any{"status": "Active"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkOrder_TypedColumns(t *testing.T) {
	h := newRouter(t, newSQLite(t), nil)
	acct := createAccount(t, h, "Acme", "Active")

	rec := do(t, h, http.MethodPost, "/v1/work-orders", map[string]any{
		"account_id":      acct["id"],
		"title":           "Replace compressor",
		"status":          "New",
		"scheduled_for":   "2025-04-02T15:00:00Z",
		"estimated_hours": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wo := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), wo["estimated_hours"])
	assert.Equal(t, "2025-04-02T15:00:00Z", wo["scheduled_for"])

	rec = do(t, h, http.MethodPost, "/v1/work-orders", map[string]any{
		"account_id":  acct["id"],
		"location_id": "12",
		"title":       "Inspect",
		"status":      "New",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid location ID format", decode[validationResponse](t, rec).Error)

	filtered := do(t, h, http.MethodGet, "/v1/work-orders?estimated_hours=3", nil)
	require.Equal(t, http.StatusOK, filtered.Code)
	assert.Len(t, decode[[]map[string]any](t, filtered), 1)

	bad := do(t, h, http.MethodGet, "/v1/work-orders?estimated_hours=three", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "INVALID_FILTER", decode[map[string]string](t, bad)["code"])
}

type failingStore struct {
	store.Store
}

func (failingStore) List(context.Context, *store.Table, store.ListOptions) ([]store.Record, error) {
	return nil, errors.New("connection reset by peer")
}

func TestStoreError_GenericIsNotLeaked(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := newRouter(t, failingStore{}, zap.New(core))

	rec := do(t, h, http.MethodGet, "/v1/accounts", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, rec.Body.String(), "connection reset")

	entries := logs.FilterMessage("store operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "accounts", entries[0].ContextMap()["resource"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/brew", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 20}},
		{"page_size=50&offset=10", Pagination{Limit: 50, Offset: 10}},
		{"page_size=500", Pagination{Limit: 100}},
		{"page_size=-1&offset=-5", Pagination{Limit: 20}},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		assert.Equal(t, tt.want, parsePagination(req), tt.query)
	}
}

func TestParseAuditContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	info := parseAuditContext(req)
	assert.Equal(t, "anonymous", info.Actor)
	assert.Equal(t, "user", info.Source)
	assert.Nil(t, info.CorrelationID)

	req.Header.Set("X-Actor", "dispatcher-7")
	req.Header.Set("X-Correlation-ID", "abc")
	info = parseAuditContext(req)
	assert.Equal(t, "dispatcher-7", info.Actor)
	require.NotNil(t, info.CorrelationID)
	assert.Equal(t, "abc", *info.CorrelationID)
}
