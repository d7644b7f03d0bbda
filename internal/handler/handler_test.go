package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/repository"
	"github.com/Dan9191/lease-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	opts    service.RunOptions
	summary *models.RunSummary
	err     error
}

func (f *fakeEngine) RunRentEngine(ctx context.Context, opts service.RunOptions) (*models.RunSummary, error) {
	f.opts = opts
	return f.summary, f.err
}

func newTestRouter(engine EngineRunner) (http.Handler, *config.Config) {
	return newTestRouterIn(engine, time.UTC)
}

func newTestRouterIn(engine EngineRunner, loc *time.Location) (http.Handler, *config.Config) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "test-secret", Location: loc}
	return NewRouter(NewHandler(engine, loc, log), cfg), cfg
}

func adminToken(t *testing.T, secret, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops@fleet",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doRun(t *testing.T, router http.Handler, token, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/rent-engine/run"+query, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(&fakeEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunRentEngine_Success(t *testing.T) {
	engine := &fakeEngine{summary: &models.RunSummary{
		Success:             true,
		AgreementsProcessed: 3,
		SchedulesCreated:    4,
		LateFeesProcessed:   2,
	}}
	router, cfg := newTestRouter(engine)

	rec := doRun(t, router, adminToken(t, cfg.JWTSecret, "admin"), "?lease_id=abc&historical_only=true&as_of=2024-06-10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", engine.opts.LeaseID)
	assert.True(t, engine.opts.HistoricalOnly)
	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), engine.opts.AsOf)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["agreements_processed"])
	assert.Equal(t, float64(4), body["schedules_created"])
	assert.Equal(t, float64(2), body["late_fees_processed"])
}

func TestRunRentEngine_AsOfIsReadInConfiguredTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	engine := &fakeEngine{summary: &models.RunSummary{Success: true}}
	router, cfg := newTestRouterIn(engine, ny)
	token := adminToken(t, cfg.JWTSecret, "admin")

	for _, asOf := range []string{"2024-03-10", "2024-07-01"} {
		rec := doRun(t, router, token, "?as_of="+asOf)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, asOf, engine.opts.AsOf.In(ny).Format("2006-01-02"))
		assert.Equal(t, 0, engine.opts.AsOf.In(ny).Hour())
	}
}

func TestRunRentEngine_BadParams(t *testing.T) {
	router, cfg := newTestRouter(&fakeEngine{})
	token := adminToken(t, cfg.JWTSecret, "admin")

	assert.Equal(t, http.StatusBadRequest, doRun(t, router, token, "?as_of=10/06/2024").Code)
	assert.Equal(t, http.StatusBadRequest, doRun(t, router, token, "?historical_only=maybe").Code)
}

func TestRunRentEngine_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", service.ErrRunInProgress, http.StatusConflict},
		{"unknown lease", repository.ErrLeaseNotFound, http.StatusNotFound},
		{"fatal", errors.New("failed to load active leases: timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{summary: &models.RunSummary{Error: tt.err.Error()}, err: tt.err}
			router, cfg := newTestRouter(engine)

			rec := doRun(t, router, adminToken(t, cfg.JWTSecret, "admin"), "")

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestRunRentEngine_RequiresAdminToken(t *testing.T) {
	router, cfg := newTestRouter(&fakeEngine{summary: &models.RunSummary{Success: true}})

	assert.Equal(t, http.StatusUnauthorized, doRun(t, router, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRun(t, router, adminToken(t, "wrong-secret", "admin"), "").Code)
	assert.Equal(t, http.StatusForbidden, doRun(t, router, adminToken(t, cfg.JWTSecret, "viewer"), "").Code)
}
