package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/authsystem/internal/config"
	"github.com/rmendes/authsystem/internal/domain/user"
	"github.com/rmendes/authsystem/internal/mail"
	"github.com/rmendes/authsystem/internal/observability"
	"github.com/rmendes/authsystem/internal/otp"
	"github.com/rmendes/authsystem/internal/repo"
	"github.com/rmendes/authsystem/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
}

type OTPLedger interface {
	Issue(email string) string
	Verify(email, code string) otp.Result
}

type RegistrationHandler struct {
	users      UserReader
	userWriter UserWriter
	ledger     OTPLedger
	mailer     mail.Mailer
	metrics    *observability.Prom
}

func NewRegistrationHandler(users UserReader, userWriter UserWriter, ledger OTPLedger, mailer mail.Mailer, metrics *observability.Prom) *RegistrationHandler {
	return &RegistrationHandler{
		users:      users,
		userWriter: userWriter,
		ledger:     ledger,
		mailer:     mailer,
		metrics:    metrics,
	}
}

type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	OTP      string `json:"otp" binding:"required,len=6,numeric"`
}

func (h *RegistrationHandler) SendOTP(ctx *gin.Context) {
	h.sendOTP(ctx, false)
}

func (h *RegistrationHandler) ResendOTP(ctx *gin.Context) {
	h.sendOTP(ctx, true)
}

func (h *RegistrationHandler) sendOTP(ctx *gin.Context, resend bool) {
	var req SendOTPRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// Advisory pre-check only; the insert on verify is what actually
	// enforces uniqueness.
	_, err := h.users.GetByEmail(cctx, email)

	if err == nil {
		RespondBadRequest(ctx, "User already exists", nil)
		return
	}

	if !errors.Is(err, repo.ErrUserNotFound) {
		RespondInternal(ctx, "Failed to send OTP")
		return
	}

	// Record the code before attempting delivery. If the provider fails
	// after this point the pending code survives for a resend; a failed
	// send never loses ledger state.
	code := h.ledger.Issue(email)
	h.metrics.OTPIssued.Inc()

	mctx, mcancel := config.WithTimeout(10 * time.Second)
	defer mcancel()

	err = h.mailer.SendOTP(mctx, mail.SendOTPInput{
		Email:  email,
		Code:   code,
		Resend: resend,
	})

	if err != nil {
		h.metrics.MailDeliveries.WithLabelValues("error").Inc()
		RespondInternal(ctx, "Failed to send OTP")
		return
	}

	h.metrics.MailDeliveries.WithLabelValues("ok").Inc()

	message := "OTP sent successfully"
	if resend {
		message = "New OTP sent successfully"
	}

	ctx.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *RegistrationHandler) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	verdict := h.ledger.Verify(email, req.OTP)
	h.metrics.OTPVerifications.WithLabelValues(verdict.String()).Inc()

	switch verdict {
	case otp.Invalid:
		RespondBadRequest(ctx, "Invalid OTP", nil)
		return
	case otp.Expired:
		RespondBadRequest(ctx, "OTP has expired", nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	_, err = h.userWriter.Create(cctx, email, hash)

	if err != nil {
		if errors.Is(err, repo.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "User already exists", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Registration successful"})
}
