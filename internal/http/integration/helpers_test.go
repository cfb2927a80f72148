package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/authsystem/internal/config"
	apphttp "github.com/rmendes/authsystem/internal/http"
	"github.com/rmendes/authsystem/internal/mail"
	"github.com/rmendes/authsystem/internal/otp"
	"github.com/rmendes/authsystem/internal/repo/memory"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "test-secret-key",
		UserTokenTTL:  time.Hour,
		AdminTokenTTL: 8 * time.Hour,
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin123",
		StoreBackend:  "memory",
		OTPTTL:        2 * time.Minute,
		// high enough that flow tests never trip the limiters
		OTPLimit:    1000,
		OTPWindow:   15 * time.Minute,
		LoginLimit:  1000,
		LoginWindow: time.Hour,
	}
}

// fakeMailer records the last delivery and can simulate provider outages.
type fakeMailer struct {
	mu       sync.Mutex
	fail     bool
	lastTo   string
	lastCode string
	sends    int
}

func (m *fakeMailer) SendOTP(ctx context.Context, in mail.SendOTPInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return context.DeadlineExceeded
	}

	m.lastTo = in.Email
	m.lastCode = in.Code
	m.sends++

	return nil
}

func (m *fakeMailer) setFail(v bool) {
	m.mu.Lock()
	m.fail = v
	m.mu.Unlock()
}

func (m *fakeMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastCode
}

func setupRouter(t *testing.T, ledger *otp.Ledger, mailer mail.Mailer) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	return setupRouterWithConfig(t, testConfig(), ledger, mailer)
}

func setupRouterWithConfig(t *testing.T, cfg config.Config, ledger *otp.Ledger, mailer mail.Mailer) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	users := memory.NewUsersRepo()

	router, err := apphttp.NewRouter(logger, apphttp.Deps{
		Cfg:    cfg,
		Users:  users,
		Ledger: ledger,
		Mailer: mailer,
	})

	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	return router, users
}

// doJSON runs a request with a JSON body and an optional bearer token.
func doJSON(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader

	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}
