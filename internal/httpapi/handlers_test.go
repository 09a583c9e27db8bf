package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kasirdemo/backend/internal/cache"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/report"
	"kasirdemo/backend/internal/service"
	"kasirdemo/backend/internal/store/memory"
	"kasirdemo/backend/internal/testutil"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier123")

	repo := memory.NewSeeded()
	seed := uint64(5)
	svc := service.New(repo, cache.NoopSnapshotCache{}, service.Options{
		Days:     3,
		Seed:     &seed,
		Location: time.UTC,
		Now:      testutil.FixedClock(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)),
	})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func login(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func authedRequest(method string, target string, token string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDemoState_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/demo/state", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDemoState_ReturnsGeneratedRun(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/demo/state", token, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var snapshot domain.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.RunID == "" || snapshot.State.Settings.Name != "ETF Coffee Bar" || len(snapshot.State.Items) == 0 {
		t.Fatalf("unexpected snapshot: run=%q settings=%+v items=%d", snapshot.RunID, snapshot.State.Settings, len(snapshot.State.Items))
	}
}

func TestDemoGenerate_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/demo/generate", cashier, `{}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	admin := login(t, api, "admin", "admin123")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/demo/generate", admin, `{"seed": 7, "days": 2}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp domain.GenerateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Days != 2 || resp.RunID == "" {
		t.Fatalf("unexpected generate response %+v", resp)
	}
}

func TestDemoGenerate_EmptyBodyUsesDefaults(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", "admin123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/demo/generate", admin, ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDemoGenerate_RejectsBadInput(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", "admin123")

	for _, body := range []string{`{"days": -3}`, `{"weeks": 2}`} {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/api/v1/demo/generate", admin, body)
		req.RemoteAddr = "192.0.2.10:1000"
		api.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestOrders_FilterByDate(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders?date=2026-10-16&limit=5", token, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orders) > 5 {
		t.Fatalf("expected at most 5 orders, got %d", len(body.Orders))
	}

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders?date=16-10-2026", token, ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestDailyReport_JSONAndCSV(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", "admin123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/reports/daily", admin, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Days  []report.DaySummary `json:"days"`
		Total report.DaySummary   `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total.Date != "total" {
		t.Fatalf("expected a total row, got %+v", body.Total)
	}

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/reports/daily?format=csv", admin, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for csv, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "date,orders,items_sold,revenue,tax,cost,margin\n") {
		t.Fatalf("unexpected csv header: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/reports/daily?format=pdf", admin, ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", rec.Code)
	}
}

func TestDailyReport_CashierForbidden(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/reports/daily", cashier, ""))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPairs(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/reports/pairs?limit=3", token, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Pairs []report.Pair `json:"pairs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Pairs) > 3 {
		t.Fatalf("expected at most 3 pairs, got %d", len(body.Pairs))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/demo/generate", token, ""))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
