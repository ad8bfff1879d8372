package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/licenced/internal/config"
	"github.com/licenced/internal/licence"
)

const testAdminPassword = "hunter2"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *licence.Service) {
	return newTestServerWith(t, licence.NewMemoryStore(), mutate)
}

func newTestServerWith(t *testing.T, store licence.Store, mutate func(*config.Config)) (*Server, *licence.Service) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Auth.AdminPasswordHash = string(hash)
	if mutate != nil {
		mutate(cfg)
	}

	svc := licence.NewService(store)
	return NewServer(cfg, svc), svc
}

// downStore fails every operation, standing in for an unreachable
// database.
type downStore struct{ err error }

func (d downStore) LatestGrant(context.Context, string) (*licence.Grant, error) {
	return nil, d.err
}

func (d downStore) CreateGrant(context.Context, string, licence.Kind, int) (*licence.Grant, error) {
	return nil, d.err
}

func (d downStore) DecrementAllTimed(context.Context, int) (int64, error) {
	return 0, d.err
}

func (d downStore) DecaySweep(context.Context, time.Time) (int64, error) {
	return 0, d.err
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func grantReq(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/licence", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Admin-Password", testAdminPassword)
	return req
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusWithoutGrant(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, target := range []string{"/check-licence", "/api/v1/licence/status", "/check-licence?userId=nobody"} {
		rec := do(s, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)
		st := decodeStatus(t, rec)
		assert.Equal(t, string(licence.KindNone), st.Licence, target)
		assert.True(t, st.Expired, target)
		assert.False(t, st.Active, target)
		assert.Zero(t, st.Days, target)
	}
}

func TestGrantThenStatus(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, grantReq(`{"userId":"alice","type":"timed","days":30}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var g GrantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, "alice", g.UserID)
	assert.Equal(t, 30, g.DaysRemaining)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/check-licence?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, "timed", st.Licence)
	assert.Equal(t, 30, st.Days)
	assert.True(t, st.Active)
	assert.False(t, st.Unbounded)
}

func TestGrantUnlimitedOmitsDays(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, grantReq(`{"userId":"bob","type":"unlimited"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/v1/licence/status?userId=bob", nil))
	st := decodeStatus(t, rec)
	assert.Equal(t, "unlimited", st.Licence)
	assert.True(t, st.Unbounded)
	assert.True(t, st.Active)
	assert.Zero(t, st.Days)
}

func TestGrantValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing days for timed", `{"userId":"u","type":"timed"}`},
		{"negative days", `{"userId":"u","type":"timed","days":-1}`},
		{"unknown type", `{"userId":"u","type":"eternal","days":1}`},
		{"empty user", `{"userId":"","type":"timed","days":1}`},
		{"malformed json", `{"userId":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(s, grantReq(tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	// Nothing leaked through to the store.
	rec := do(s, httptest.NewRequest(http.MethodGet, "/check-licence?userId=u", nil))
	st := decodeStatus(t, rec)
	assert.Equal(t, string(licence.KindNone), st.Licence)
}

func TestAdminGate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/licence", strings.NewReader(`{"userId":"u","type":"unlimited"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/licence", strings.NewReader(`{"userId":"u","type":"unlimited"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Admin-Password", "wrong")
	rec = do(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGateDisabledWithoutHash(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.AdminPasswordHash = ""
	})

	rec := do(s, grantReq(`{"userId":"u","type":"unlimited"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallerGate(t *testing.T) {
	const secret = "status-secret"
	s, svc := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.TokenSecret = secret
	})

	_, err := svc.Grant(t.Context(), "carol", licence.KindTimed, 7)
	require.NoError(t, err)

	// No token: uniform no-licence answer, HTTP 200.
	rec := do(s, httptest.NewRequest(http.MethodGet, "/check-licence?userId=carol", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, string(licence.KindNone), st.Licence)

	// Garbage token: same answer.
	req := httptest.NewRequest(http.MethodGet, "/check-licence?userId=carol", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(licence.KindNone), decodeStatus(t, rec).Licence)

	// Valid token without a userId param resolves the subject's licence.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/check-licence", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeStatus(t, rec)
	assert.Equal(t, "timed", st.Licence)
	assert.Equal(t, 7, st.Days)
}

func TestGrantRateLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)

	limited := false
	for i := 0; i < 20; i++ {
		rec := do(s, grantReq(fmt.Sprintf(`{"userId":"burst-%d","type":"unlimited"}`, i)))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.True(t, limited, "burst of grants should trip the rate limit")
}

func TestStatusStoreUnavailable(t *testing.T) {
	s, _ := newTestServerWith(t, downStore{err: errors.New("connection refused")}, nil)

	// An unreachable store fails closed: an explicit 503, never a
	// fabricated no-licence status.
	for _, target := range []string{"/check-licence?userId=u", "/api/v1/licence/status"} {
		rec := do(s, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, target)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "licence store unavailable", body["error"], target)
		assert.NotContains(t, body, "licence", target)
		assert.NotContains(t, body, "active", target)
	}
}

func TestGrantStoreUnavailable(t *testing.T) {
	s, _ := newTestServerWith(t, downStore{err: errors.New("connection refused")}, nil)

	rec := do(s, grantReq(`{"userId":"u","type":"timed","days":5}`))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "licence store unavailable", body.Error)
}

func TestNewestGrantWins(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, grantReq(`{"userId":"dave","type":"unlimited"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(s, grantReq(`{"userId":"dave","type":"timed","days":2}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/check-licence?userId=dave", nil))
	st := decodeStatus(t, rec)
	assert.Equal(t, "timed", st.Licence)
	assert.Equal(t, 2, st.Days)
	assert.False(t, st.Unbounded)
}
