package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intan/internal/models"
	"intan/internal/ninja"
	"intan/internal/repository"
	"intan/internal/scoring"
	"intan/internal/security"
	"intan/internal/service"
	"intan/internal/storage"
)

type testServer struct {
	handler http.Handler
	limiter *security.RateLimiter
}

func newTestServer(t *testing.T, store storage.Storage) *testServer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	repo := repository.NewProgressRepository(store)
	progress := service.NewProgressService(repo, nil, logger)
	tokens := security.NewTokenManager("test-secret", time.Hour)
	csrf := security.NewCSRFGenerator("test-secret")
	limiter := security.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	mux := http.NewServeMux()
	NewAPIHandler(progress, tokens, csrf, logger).RegisterRoutes(mux, NewMiddleware(tokens, csrf, limiter, nil, logger))

	return &testServer{handler: Logging(logger, mux), limiter: limiter}
}

// client carries the session cookie and CSRF token between requests
type client struct {
	t      *testing.T
	srv    *testServer
	cookie *http.Cookie
	csrf   string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" {
		req.Header.Set(security.CSRFHeaderName, c.csrf)
	}

	rec := httptest.NewRecorder()
	c.srv.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == security.SessionCookieName {
			if cookie.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = cookie
			}
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (c *client) register(name string) authResponse {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/register", service.RegisterInput{Name: name, Age: 9})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[authResponse](c.t, rec)
	c.csrf = resp.CSRFToken
	return resp
}

func TestRegisterAndPlay(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}

	auth := c.register("Intan")
	require.NotNil(t, auth.Profile)
	assert.NotEmpty(t, auth.CSRFToken)
	require.NotNil(t, c.cookie, "register should set the session cookie")

	rec := c.do(http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	initial := decode[progressResponse](t, rec)
	assert.Zero(t, initial.Progress.TotalScore)
	assert.Equal(t, 3, initial.Summary.TotalSteps)

	for _, step := range []string{"step1", "step2", "step3"} {
		rec = c.do(http.MethodPost, "/api/progress/"+step, stepRequest{Score: 10, Completed: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	final := decode[progressResponse](t, rec)
	assert.Equal(t, 30, final.Progress.TotalScore)
	assert.Equal(t, []models.Achievement{
		models.AchievementFirstStep,
		models.AchievementAllComplete,
		models.AchievementPerfectMaster,
	}, final.Progress.Achievements)
	assert.Equal(t, 100.0, final.Summary.PercentComplete)

	rec = c.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Intan", decode[models.UserProfile](t, rec).Name)
}

func TestRegisterValidationError(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/register", service.RegisterInput{Name: "Intan", Age: 40})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "age", decode[errorResponse](t, rec).Field)
	assert.Nil(t, c.cookie)
}

func TestMalformedJSON(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/progress", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/profile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/progress/step1", stepRequest{Score: 1}).Code)
}

func TestInvalidCookieIsCleared(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv, cookie: &http.Cookie{Name: security.SessionCookieName, Value: "forged"}}

	rec := c.do(http.MethodGet, "/api/progress", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, c.cookie, "invalid cookie should be deleted")
}

func TestCSRFRequired(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	token := c.csrf
	c.csrf = ""
	rec := c.do(http.MethodPost, "/api/progress/step1", stepRequest{Score: 5, Completed: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c.csrf = "wrong"
	rec = c.do(http.MethodPost, "/api/progress/step1", stepRequest{Score: 5, Completed: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c.csrf = ""
	rec = c.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, token, sess.CSRFToken)
}

func TestRecordStepValidation(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	rec := c.do(http.MethodPost, "/api/progress/step9", stepRequest{Score: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "step", decode[errorResponse](t, rec).Field)

	rec = c.do(http.MethodPost, "/api/progress/step1", stepRequest{Score: 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "score", decode[errorResponse](t, rec).Field)
}

func TestLogoutAndLogin(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	auth := c.register("Intan")

	rec := c.do(http.MethodPost, "/api/progress/step1", stepRequest{Score: 7, Completed: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, c.cookie)
	c.csrf = ""

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/progress", nil).Code)

	rec = c.do(http.MethodPost, "/api/login", loginRequest{UserID: "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/api/login", loginRequest{UserID: auth.Profile.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	c.csrf = decode[authResponse](t, rec).CSRFToken

	rec = c.do(http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resumed := decode[progressResponse](t, rec)
	assert.Equal(t, 7, resumed.Progress.Step1.BestScore, "progress survives logout")
}

func TestLogoutRevokesSessionToken(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	copied := *c.cookie
	csrf := c.csrf

	rec := c.do(http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	replay := &client{t: t, srv: srv, cookie: &copied, csrf: csrf}
	assert.Equal(t, http.StatusUnauthorized, replay.do(http.MethodGet, "/api/progress", nil).Code)
	assert.Nil(t, replay.cookie, "a revoked cookie should be cleared")

	rec = (&client{t: t, srv: srv, cookie: &copied}).do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[sessionResponse](t, rec).LoggedIn)
}

func TestNinjaRunRecordsStep3(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	rec := c.do(http.MethodPost, "/api/ninja/run", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	state := decode[ninja.State](t, rec)
	assert.Equal(t, len(ninja.DefaultLevels), state.Levels)
	assert.True(t, state.Playing)
	assert.Greater(t, state.RemainingSeconds, 0.0)

	for i := range ninja.DefaultLevels {
		if i > 0 {
			rec = c.do(http.MethodPost, "/api/ninja/run/level", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}

		rec = c.do(http.MethodPost, "/api/ninja/run/cut", ninjaCutRequest{PositionError: 0, Threshold: 5})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		cut := decode[ninjaCutResponse](t, rec)
		assert.Equal(t, i, cut.Result.Level)
		assert.Equal(t, 100.0, cut.Result.Score.Accuracy)
	}

	rec = c.do(http.MethodPost, "/api/ninja/run/level", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/api/ninja/run/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	finish := decode[ninjaFinishResponse](t, rec)
	assert.Equal(t, 10, finish.StepScore)
	assert.True(t, finish.Completed)
	assert.True(t, finish.Run.Finished)
	assert.Len(t, finish.Run.Results, len(ninja.DefaultLevels))
	assert.Greater(t, finish.Run.TotalScore, 0)

	rec = c.do(http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[progressResponse](t, rec)
	assert.True(t, saved.Progress.Step3.Completed)
	assert.Equal(t, 10, saved.Progress.Step3.BestScore)
	assert.Equal(t, 1, saved.Progress.Step3.Attempts)
	assert.Equal(t, 10, saved.Progress.TotalScore)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/ninja/run", nil).Code)
}

func TestNinjaRunErrorsAndEarlyFinish(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/ninja/run", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/ninja/run/cut", ninjaCutRequest{Threshold: 5}).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/ninja/run/finish", nil).Code)

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/ninja/run", nil).Code)

	rec := c.do(http.MethodPost, "/api/ninja/run/cut", ninjaCutRequest{PositionError: 1, Threshold: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/ninja/run/cut", ninjaCutRequest{PositionError: 0, Threshold: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/ninja/run/cut", ninjaCutRequest{PositionError: 0, Threshold: 5})
	assert.Equal(t, http.StatusConflict, rec.Code, "the next level has not been started")

	rec = c.do(http.MethodGet, "/api/ninja/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[ninja.State](t, rec)
	assert.Equal(t, 1, state.Level)
	assert.False(t, state.Playing)

	rec = c.do(http.MethodPost, "/api/ninja/run/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	finish := decode[ninjaFinishResponse](t, rec)
	assert.Equal(t, 2, finish.StepScore, "one perfect level out of five")
	assert.False(t, finish.Completed)
	assert.False(t, finish.Progress.Step3.Completed)
	assert.Equal(t, 2, finish.Progress.Step3.BestScore)

	anon := &client{t: t, srv: srv}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/ninja/run", nil).Code)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}
	c.register("Intan")

	rec := c.do(http.MethodPut, "/api/profile", service.RegisterInput{Name: "Intan P", Email: "intan@example.com", Grade: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[models.UserProfile](t, rec)
	assert.Equal(t, "Intan P", profile.Name)
	assert.Equal(t, "intan@example.com", profile.Email)
}

func TestStorageUnavailable(t *testing.T) {
	srv := newTestServer(t, storage.Unavailable{})
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/register", service.RegisterInput{Name: "Intan"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNinjaScore(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}

	accuracy := 96.0
	rec := c.do(http.MethodPost, "/api/ninja/score", ninjaScoreRequest{Accuracy: &accuracy, TimeRemaining: 10, LevelIndex: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[scoring.Breakdown](t, rec)
	assert.Equal(t, 1950, b.Total)
	assert.Equal(t, "PERFECT", b.Tier.Name)

	positionError := 5.0
	rec = c.do(http.MethodPost, "/api/ninja/score", ninjaScoreRequest{PositionError: &positionError, Threshold: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	b = decode[scoring.Breakdown](t, rec)
	assert.Equal(t, 70.0, b.Accuracy)
	assert.Equal(t, "GREAT", b.Tier.Name)

	rec = c.do(http.MethodPost, "/api/ninja/score", ninjaScoreRequest{PositionError: &positionError})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/ninja/score", ninjaScoreRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogAndHealth(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage())
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[catalogResponse](t, rec)
	assert.Len(t, catalog.Steps, 3)
	assert.Len(t, catalog.Achievements, 3)
	assert.Len(t, catalog.Tiers, 6)
	assert.Equal(t, 30.0, catalog.NinjaLevels[0].TimeLimitSeconds)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil).Code)
}

func TestRateLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	m := NewMiddleware(nil, nil, limiter, nil, logger)

	h := m.RateLimit(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	first := httptest.NewRecorder()
	h(first, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	second := httptest.NewRecorder()
	h(second, httptest.NewRequest(http.MethodPost, "/api/login", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	logger, _ := test.NewNullLogger()
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	m := NewMiddleware(nil, nil, limiter, nil, logger)

	h := m.RateLimit(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	trusted, err := security.ParseTrustedProxies([]string{"10.0.0.1"})
	require.NoError(t, err)
	m := NewMiddleware(nil, nil, limiter, trusted, logger)

	h := m.RateLimit(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1"))
	assert.Equal(t, http.StatusOK, send("2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.1.1.1"))
}

func TestLoggingRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Logging(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/brew", entry.Data["path"])
}
