package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rmendes/authsystem/internal/otp"
)

func TestOTPEndpointsShareALimit(t *testing.T) {
	mailer := &fakeMailer{}

	cfg := testConfig()
	cfg.OTPLimit = 2
	cfg.OTPWindow = 15 * time.Minute

	router, _ := setupRouterWithConfig(t, cfg, otp.New(2*time.Minute), mailer)

	if w := doJSON(router, http.MethodPost, "/send-otp", `{"email":"a@b.com"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("first send status = %d", w.Code)
	}

	// resend draws from the same per-IP budget
	if w := doJSON(router, http.MethodPost, "/resend-otp", `{"email":"a@b.com"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("resend status = %d", w.Code)
	}

	w := doJSON(router, http.MethodPost, "/send-otp", `{"email":"a@b.com"}`, "")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", w.Code)
	}

	if !strings.Contains(w.Body.String(), "Too many OTP requests") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoginLimitIndependentOfOTPLimit(t *testing.T) {
	mailer := &fakeMailer{}

	cfg := testConfig()
	cfg.OTPLimit = 1
	cfg.LoginLimit = 3

	router, _ := setupRouterWithConfig(t, cfg, otp.New(2*time.Minute), mailer)

	// exhaust the OTP budget
	doJSON(router, http.MethodPost, "/send-otp", `{"email":"a@b.com"}`, "")

	if w := doJSON(router, http.MethodPost, "/send-otp", `{"email":"a@b.com"}`, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("otp over-limit status = %d, want 429", w.Code)
	}

	// login budget is untouched
	w := doJSON(router, http.MethodPost, "/login",
		`{"email":"a@b.com","password":"pw12345678"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401 (not rate limited)", w.Code)
	}
}
