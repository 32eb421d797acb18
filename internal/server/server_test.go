package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"piron-pools-go/internal/api"
	"piron-pools-go/internal/database"
	"piron-pools-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-session-secret"

type testEnv struct {
	handler http.Handler
	svc     *api.Service
	db      *database.Service
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dbService, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
		SeedSettings: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(dbService.Close)

	svc := api.NewService(api.ServiceConfig{
		DbService: dbService,
		Policy:    models.PolicyConfig{AdminBootstrapEnabled: true},
	})
	auth, err := NewAuthenticator(models.AuthConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	srv := NewServer(ServerConfig{
		Service:       svc,
		Authenticator: auth,
		HTTP: models.ServerConfig{
			Addr:           ":0",
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
	})
	return &testEnv{handler: srv.Handler(), svc: svc, db: dbService}
}

func signToken(t *testing.T, subject, email string, ttl time.Duration) string {
	t.Helper()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)
	rec, resp := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("GET /health = %d %+v", rec.Code, resp)
	}
}

func TestAuthentication(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + func() string {
			tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "user_1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}).SignedString([]byte("other-secret"))
			return tok
		}(), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "user_1", "a@example.com", -time.Hour), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, "user_1", "a@example.com", time.Hour), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("GET /api/v1/me = %d; want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestPublicPoolRoutes(t *testing.T) {
	env := setupTestServer(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/pools", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /pools = %d", rec.Code)
	}
	if pools, ok := resp.Data.([]any); !ok || len(pools) != 0 {
		t.Errorf("Data = %#v; want empty list", resp.Data)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/pools/does-not-exist", "", nil)
	if rec.Code != http.StatusNotFound || resp.Status != "error" {
		t.Errorf("GET missing pool = %d %+v; want 404 error", rec.Code, resp)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/pools?status=CLOSED", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET pools with unknown status = %d; want 400", rec.Code)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/metrics/platform", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics/platform = %d", rec.Code)
	}
}

func TestAdminFlow(t *testing.T) {
	env := setupTestServer(t)
	superToken := signToken(t, "user_super", "super@piron.finance", time.Hour)
	userToken := signToken(t, "user_investor", "investor@example.com", time.Hour)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/admin/access", superToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/access = %d", rec.Code)
	}
	if state := resp.Data.(map[string]any)["state"]; state != string(api.AccessBootstrap) {
		t.Fatalf("state = %v; want BOOTSTRAP", state)
	}

	// Guarded routes are closed until an admin exists
	rec, _ = env.do(t, http.MethodGet, "/api/v1/admin/admins", superToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("GET /admin/admins before bootstrap = %d; want 403", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/bootstrap", superToken, map[string]string{"name": "Super"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /admin/bootstrap = %d", rec.Code)
	}
	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/bootstrap", userToken, map[string]string{"name": "Again"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second bootstrap = %d; want 409", rec.Code)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/admin/admins", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous admin list = %d; want 401", rec.Code)
	}
	rec, _ = env.do(t, http.MethodGet, "/api/v1/admin/admins", userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin admin list = %d; want 403", rec.Code)
	}

	epochEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	poolReq := map[string]any{
		"name":            "US T-Bill 3M",
		"instrument_type": "DISCOUNTED",
		"asset_symbol":    "USDC",
		"target_raise":    "1000000",
		"discount_rate":   1000,
		"epoch_end_time":  epochEnd,
		"maturity_date":   epochEnd.Add(91 * 24 * time.Hour),
	}
	rec, resp = env.do(t, http.MethodPost, "/api/v1/admin/pools", superToken, poolReq)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /admin/pools = %d %+v", rec.Code, resp)
	}
	created := resp.Data.(map[string]any)
	poolId := created["id"].(string)
	if created["status"] != "FUNDING" || created["total_raised"] != "0" {
		t.Errorf("created pool = %v", created)
	}

	rec, _ = env.do(t, http.MethodPatch, "/api/v1/admin/pools/"+poolId+"/status", superToken, map[string]string{"status": "MATURED"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("illegal transition = %d; want 422", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/pools", superToken, map[string]any{"name": "broken"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid pool = %d; want 400", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/pools/"+poolId+"/sync", superToken, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("chain sync without chain client = %d; want 503", rec.Code)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/admin/actions", superToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/actions = %d", rec.Code)
	}
	if actions := resp.Data.([]any); len(actions) < 2 {
		t.Errorf("audit entries = %d; want bootstrap and pool creation", len(actions))
	}
}

func TestDepositsRequireSignIn(t *testing.T) {
	env := setupTestServer(t)

	body := map[string]string{
		"pool_id": "p1",
		"tx_hash": "0x1000000000000000000000000000000000000000000000000000000000000001",
		"amount":  "100",
	}
	rec, _ := env.do(t, http.MethodPost, "/api/v1/deposits", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous deposit = %d; want 401", rec.Code)
	}

	token := signToken(t, "user_investor", "investor@example.com", time.Hour)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/deposits", token, body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("deposit without chain client = %d; want 503", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/deposits", "", map[string]string{"unknown": "field"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d; want 400", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v; want [200 200 429]", codes)
	}

	// A different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client = %d; want 200", rec.Code)
	}

	if removed := rl.Cleanup(0); removed != 2 {
		t.Errorf("Cleanup removed %d; want 2", removed)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{api.ErrUnauthorized, http.StatusUnauthorized},
		{api.ErrSelfDelete, http.StatusForbidden},
		{api.ErrDepositsPaused, http.StatusUnprocessableEntity},
		{api.ErrBootstrapClosed, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}
