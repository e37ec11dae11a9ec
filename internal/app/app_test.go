package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/internal/config"
	"github.com/portmail/portmail/internal/dispatch"
	"github.com/portmail/portmail/pkg/mailer/resend"
	"github.com/portmail/portmail/pkg/mailer/smtp"
	"github.com/portmail/portmail/pkg/storage"
)

func testApp(cfg config.Config) *App {
	return &App{
		cfg:        cfg,
		logger:     slog.New(slog.DiscardHandler),
		objects:    storage.NewMemory(),
		registry:   prometheus.NewRegistry(),
		dispatcher: dispatch.New(nil, nil, nil),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Wiring(t *testing.T) {
	t.Parallel()

	t.Run("api disabled without jwt secret", func(t *testing.T) {
		t.Parallel()

		h := testApp(config.Config{Env: config.EnvDevelopment}).router(nil)

		assert.Equal(t, http.StatusOK, get(t, h, "/health/live").Code)
		assert.Equal(t, http.StatusNotFound, get(t, h, "/api/jobs").Code)
		assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
	})

	t.Run("api and metrics enabled", func(t *testing.T) {
		t.Parallel()

		h := testApp(config.Config{
			Env:            config.EnvDevelopment,
			JWTSecret:      "secret",
			MetricsEnabled: true,
			MaxUploadBytes: 1 << 20,
		}).router(nil)

		assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/jobs").Code)
		assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/templates").Code)
		assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
	})

	t.Run("sweep endpoint without secret in production", func(t *testing.T) {
		t.Parallel()

		h := testApp(config.Config{Env: config.EnvProduction}).router(nil)

		rec := get(t, h, "/cron/send-mails")
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Configuration Error", body["error"])
	})

	t.Run("sweep endpoint rejects bad token", func(t *testing.T) {
		t.Parallel()

		h := testApp(config.Config{Env: config.EnvProduction, CronSecret: "cron"}).router(nil)

		req := httptest.NewRequest(http.MethodPost, "/cron/send-mails", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("sweep endpoint enforces secret outside development", func(t *testing.T) {
		t.Parallel()

		h := testApp(config.Config{Env: config.EnvTest, CronSecret: "cron"}).router(nil)

		rec := get(t, h, "/cron/send-mails")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestNewObjectStore(t *testing.T) {
	t.Parallel()

	s, err := newObjectStore(config.Config{Storage: storage.Config{Driver: config.StorageMemory}})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, s)

	_, err = newObjectStore(config.Config{Storage: storage.Config{Driver: config.StorageS3}})
	require.ErrorIs(t, err, storage.ErrInvalidConfig)
}

func TestNewMailer(t *testing.T) {
	t.Parallel()

	t.Run("smtp", func(t *testing.T) {
		t.Parallel()

		cfg := config.Config{}
		cfg.Mail.Provider = config.ProviderSMTP
		cfg.Mail.From = "ops@agency.test"
		cfg.SMTP = smtp.Config{Host: "smtp.agency.test", Port: 587, Username: "u", Password: "p", TLS: "opportunistic"}

		m, err := newMailer(cfg)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("resend without key", func(t *testing.T) {
		t.Parallel()

		cfg := config.Config{}
		cfg.Mail.Provider = config.ProviderResend
		cfg.Mail.From = "ops@agency.test"

		_, err := newMailer(cfg)
		require.ErrorIs(t, err, resend.ErrMissingAPIKey)
	})

	t.Run("missing from address", func(t *testing.T) {
		t.Parallel()

		cfg := config.Config{}
		cfg.Mail.Provider = config.ProviderResend
		cfg.Resend.APIKey = "re_123"

		_, err := newMailer(cfg)
		require.Error(t, err)
	})
}
