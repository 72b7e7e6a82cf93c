package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hostexposer/internal/server/api/response"
	"hostexposer/internal/server/auth"
	"hostexposer/internal/server/config"
	"hostexposer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPassword = "secret"

type fakeService struct {
	mu        sync.Mutex
	clients   []types.ClientInformation
	listErr   error
	renameErr error
	renamed   map[string]string
	healthy   bool
}

func (f *fakeService) ListClients(context.Context) ([]types.ClientInformation, error) {
	return f.clients, f.listErr
}

func (f *fakeService) RenameClient(_ context.Context, id string, req types.RenameRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[id] = req.NewName
	return nil
}

func (f *fakeService) HealthCheck(context.Context) *types.HealthStatus {
	return &types.HealthStatus{Healthy: f.healthy, Timestamp: time.Now()}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config, svc *fakeService, exposer http.HandlerFunc) http.Handler {
	t.Helper()
	if exposer == nil {
		exposer = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	}
	r := NewRouter(cfg, svc, exposer, auth.NewAuthenticator(testPassword), zaptest.NewLogger(t))
	return r.Handler()
}

func do(t *testing.T, h http.Handler, method, path, authHeader, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func basic(password string) string {
	return "Basic " + auth.EncodePassword(password)
}

func TestListClientsRoute(t *testing.T) {
	svc := &fakeService{clients: []types.ClientInformation{{
		Entity: types.Entity{ID: "c1", Name: "Device A", CreateTime: "t0", LastFetchTime: "t1"},
		AdapterAddresses: []types.AdapterAddress{
			{Name: "eth0", V4: "10.0.0.2"},
		},
	}}}
	h := newTestRouter(t, testConfig(), svc, nil)

	rec := do(t, h, http.MethodGet, "/api/client", basic(testPassword), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	var got []types.ClientInformation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, svc.clients, got)
}

func TestListClientsEmptyIsArray(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{clients: []types.ClientInformation{}}, nil)

	rec := do(t, h, http.MethodGet, "/api/client", basic(testPassword), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestClientRoutesRequireAuth(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{"list without header", http.MethodGet, "/api/client", ""},
		{"list with wrong password", http.MethodGet, "/api/client", basic("wrong")},
		{"list with raw password", http.MethodGet, "/api/client", "Basic " + testPassword},
		{"auth probe", http.MethodGet, "/api/client/auth", basic("wrong")},
		{"rename", http.MethodPut, "/api/client/c1", "Bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.header, `{"new_name":"x"}`)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, http.StatusUnauthorized, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestAuthProbe(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{}, nil)

	rec := do(t, h, http.MethodGet, "/api/client/auth", basic(testPassword), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRenameRoute(t *testing.T) {
	t.Run("renames", func(t *testing.T) {
		svc := &fakeService{}
		h := newTestRouter(t, testConfig(), svc, nil)

		rec := do(t, h, http.MethodPut, "/api/client/c1", basic(testPassword), `{"new_name":"Office NAS"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Office NAS", svc.renamed["c1"])
	})

	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed body", `{"new_name":`, nil, http.StatusBadRequest},
		{"invalid request", `{"new_name":""}`, types.ErrInvalidRequest, http.StatusBadRequest},
		{"unknown client", `{"new_name":"x"}`, types.ErrClientNotFound, http.StatusNotFound},
		{"storage failure", `{"new_name":"x"}`, assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, testConfig(), &fakeService{renameErr: tt.err}, nil)
			rec := do(t, h, http.MethodPut, "/api/client/c1", basic(testPassword), tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListClientsFailure(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{listErr: assert.AnError}, nil)

	rec := do(t, h, http.MethodGet, "/api/client", basic(testPassword), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthRoute(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{healthy: true}, nil)
	rec := do(t, h, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Message)

	h = newTestRouter(t, testConfig(), &fakeService{healthy: false}, nil)
	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExposeRouteBypassesBasicAuth(t *testing.T) {
	h := newTestRouter(t, testConfig(), &fakeService{}, nil)

	rec := do(t, h, http.MethodGet, "/expose", "", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimit.Enabled = true
	cfg.API.RateLimit.Requests = 2
	cfg.API.RateLimit.Window = time.Minute
	cfg.API.RateLimit.Burst = 2
	h := newTestRouter(t, cfg, &fakeService{}, nil)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/client/auth", basic(testPassword), "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/client/auth", basic(testPassword), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestCors(t *testing.T) {
	cfg := testConfig()
	cfg.API.CORS.Enabled = true
	cfg.API.CORS.AllowedOrigins = []string{"*"}
	cfg.API.CORS.AllowedMethods = []string{"GET", "PUT"}
	cfg.API.CORS.AllowedHeaders = []string{"Authorization", "Content-Type"}
	h := newTestRouter(t, cfg, &fakeService{}, nil)

	rec := do(t, h, http.MethodOptions, "/api/client", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,PUT", rec.Header().Get("Access-Control-Allow-Methods"))
}
