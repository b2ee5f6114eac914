package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/horizon-hrms/horizon-hrms/internal/auth"
	"github.com/horizon-hrms/horizon-hrms/internal/observability"
	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
	_ "github.com/horizon-hrms/horizon-hrms/internal/testing/guard"
	"github.com/horizon-hrms/horizon-hrms/internal/testutil"
)

const (
	testUserID   = int64(1)
	testRoleID   = int64(5)
	testModuleID = int64(7)
	testCapID    = int64(42)
	testPassword = "secret123"
)

type stubAuthRepo struct {
	users map[int64]*auth.User
	roles map[int64][]int64
}

func (r *stubAuthRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.ErrActorNotFound
}

func (r *stubAuthRepo) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, auth.ErrActorNotFound
	}
	return u, nil
}

func (r *stubAuthRepo) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return r.roles[userID], nil
}

func (r *stubAuthRepo) ChiefModuleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

type routerEnv struct {
	handler http.Handler
	repo    *stubAuthRepo
	service *auth.Service
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubAuthRepo{
		users: map[int64]*auth.User{
			testUserID: {ID: testUserID, Email: "drh@horizon.local", Name: "Directrice RH", PasswordHash: string(hash), IsActive: true},
		},
		roles: map[int64][]int64{testUserID: {testRoleID}},
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	service := auth.NewService(repo, tokens, auth.NewRedisRevocations(client))
	authMW := auth.Middleware{Service: service, Logger: logger}

	fixture := testutil.NewAccessFixture().
		WithModule(testModuleID, 0).
		WithCapability(testCapID, testModuleID, rbac.CapAccessView).
		WithRoleCapability(testRoleID, testCapID)

	metrics := observability.NewMetrics()
	engine := rbac.NewEngine(fixture, fixture, logger, metrics)
	grants := rbac.NewGrants(fixture, logger, nil)
	rbacMW := rbac.Middleware{Engine: engine, Logger: logger}

	handler := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppRequestTimeout: 5 * time.Second},
		AuthMiddleware: authMW,
		AuthHandler:    auth.NewHandler(logger, service),
		AccessHandler:  rbac.NewHandler(logger, grants, engine, rbacMW),
		Metrics:        metrics,
	})

	return &routerEnv{handler: handler, repo: repo, service: service}
}

func (env *routerEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *routerEnv) login(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "drh@horizon.local",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func TestRouterHealthz(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterGuardedRouteWithoutToken(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(t, http.MethodGet, "/access/users/1/capabilities", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterLoginAndAuthorizedAccess(t *testing.T) {
	env := newRouterEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/access/users/1/capabilities", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// View grant does not extend to the manage surface.
	rec = env.do(t, http.MethodPost, "/access/users/1/capabilities", token, map[string]int64{"capability_id": testCapID})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterDeactivatedActorDenied(t *testing.T) {
	env := newRouterEnv(t)
	token := env.login(t)

	env.repo.users[testUserID].IsActive = false
	rec := env.do(t, http.MethodGet, "/access/users/1/capabilities", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterLogoutRevokesToken(t *testing.T) {
	env := newRouterEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/access/users/1/capabilities", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	env.do(t, http.MethodGet, "/healthz", "", nil)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "horizon_http_requests_total")
}