package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/adapter/auth"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/source"
	"github.com/devlens/devlens/internal/usecase"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(r.Context(), tenantKey, "acme")
	return r.WithContext(ctx)
}

func TestHandleRejectsMissingTenant(t *testing.T) {
	h := NewReportsHandler(nil, quietLogger())
	fn := func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error) {
		t.Fatal("report function must not run unauthenticated")
		return domain.PaginatedResponse{}, usecase.ScopeStatus{}, nil
	}

	w := httptest.NewRecorder()
	h.handle(fn)(w, httptest.NewRequest(http.MethodPost, "/issues/aggregate", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	h := NewReportsHandler(nil, quietLogger())
	fn := func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error) {
		t.Fatal("report function must not run on a malformed body")
		return domain.PaginatedResponse{}, usecase.ScopeStatus{}, nil
	}

	w := httptest.NewRecorder()
	h.handle(fn)(w, authedRequest(http.MethodPost, "/issues/aggregate", "{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "BAD_REQUEST", body.Code)
}

func TestHandlePassesTenantBodyAndQueryOptions(t *testing.T) {
	h := NewReportsHandler(nil, quietLogger())

	var gotTenant string
	var gotOpts usecase.QueryOptions
	var gotReq domain.ListRequest
	fn := func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error) {
		gotTenant, gotOpts, gotReq = tenant, opts, req
		return domain.NewPaginatedResponse(0, 10, []domain.AggregationRecord{{Key: "k"}}), usecase.ScopeStatus{}, nil
	}

	w := httptest.NewRecorder()
	r := authedRequest(http.MethodPost,
		"/issues/aggregate?there_is_no_cache=true&force_source=es",
		`{"page_size":10,"across":"status","filter":{"projects":["CORE"]}}`)
	h.handle(fn)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme", gotTenant)
	assert.True(t, gotOpts.DisableCache)
	assert.Equal(t, source.OverrideSearch, gotOpts.ForceSource)
	assert.Equal(t, "status", gotReq.Across)
	assert.Equal(t, 10, gotReq.PageSize)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotContains(t, body, "_metadata")
}

func TestHandleAttachesScopeMetadata(t *testing.T) {
	h := NewReportsHandler(nil, quietLogger())
	fn := func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error) {
		return domain.NewPaginatedResponse(0, 100, nil), usecase.ScopeStatus{Degraded: true}, nil
	}

	w := httptest.NewRecorder()
	h.handle(fn)(w, authedRequest(http.MethodPost, "/issues/aggregate", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metadata *usecase.ScopeStatus `json:"_metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.Metadata)
	assert.True(t, body.Metadata.Degraded)
	assert.False(t, body.Metadata.Applied)
}

func TestHandleMapsServiceErrors(t *testing.T) {
	h := NewReportsHandler(nil, quietLogger())
	fn := func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error) {
		return domain.PaginatedResponse{}, usecase.ScopeStatus{}, assert.AnError
	}

	w := httptest.NewRecorder()
	h.handle(fn)(w, authedRequest(http.MethodPost, "/issues/aggregate", ""))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, body.Message, assert.AnError.Error())
}

func TestCorrelationMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(CorrelationIDHeader, "cid-123")
	correlationMiddleware(next).ServeHTTP(w, r)
	assert.Equal(t, "cid-123", w.Header().Get(CorrelationIDHeader))

	w = httptest.NewRecorder()
	correlationMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(CorrelationIDHeader))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/issues/aggregate", nil)
	corsMiddleware(nil)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	corsMiddleware([]string{"https://a.example"})(next).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/api/v1/issues/aggregate", nil))
	assert.True(t, called)
	assert.Equal(t, "https://a.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTenantAuthBearerToken(t *testing.T) {
	jwt := auth.NewJWTService("test-secret", time.Hour)
	token, err := jwt.GenerateToken(auth.SessionClaims{Tenant: "acme", UserID: "u1"})
	require.NoError(t, err)

	var gotTenant string
	var gotSession *auth.SessionClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = TenantFrom(r.Context())
		gotSession = SessionFrom(r.Context())
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/issues/aggregate", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	NewTenantAuth(jwt, nil).Middleware(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme", gotTenant)
	require.NotNil(t, gotSession)
	assert.Equal(t, "u1", gotSession.UserID)
}

func TestTenantAuthRejections(t *testing.T) {
	jwt := auth.NewJWTService("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run unauthenticated")
	})
	mw := NewTenantAuth(jwt, nil).Middleware(next)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic dXNlcjpwdw==",
		"empty token":    "Bearer ",
		"garbage token":  "Bearer not-a-token",
		"wrong secret":   mustToken(t, auth.NewJWTService("other-secret", time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/issues/aggregate", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			mw.ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func mustToken(t *testing.T, svc *auth.JWTService) string {
	t.Helper()
	token, err := svc.GenerateToken(auth.SessionClaims{Tenant: "acme"})
	require.NoError(t, err)
	return "Bearer " + token
}
