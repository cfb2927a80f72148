package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/authsystem/internal/auth"
	"github.com/rmendes/authsystem/internal/config"
	"github.com/rmendes/authsystem/internal/observability"
	"github.com/rmendes/authsystem/internal/security"
)

type LastLoginWriter interface {
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// AdminPrincipal is the single static privileged credential. It lives in
// config, not in the user collection; the hash is computed once at startup.
type AdminPrincipal struct {
	Email        string
	PasswordHash string
}

func NewAdminPrincipal(email, password string) (AdminPrincipal, error) {
	hash, err := security.HashPassword(password)

	if err != nil {
		return AdminPrincipal{}, err
	}

	return AdminPrincipal{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	}, nil
}

type AuthHandler struct {
	users      UserReader
	lastLogins LastLoginWriter
	jwt        *auth.Manager
	admin      AdminPrincipal
	metrics    *observability.Prom
}

func NewAuthHandler(users UserReader, lastLogins LastLoginWriter, jwtManager *auth.Manager, admin AdminPrincipal, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:      users,
		lastLogins: lastLogins,
		jwt:        jwtManager,
		admin:      admin,
		metrics:    metrics,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// Accepted for API compatibility; token lifetime is fixed regardless.
	RememberMe bool `json:"rememberMe"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for store lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// Same status and message whether the email or the password was
		// wrong; don't leak which.
		h.metrics.Logins.WithLabelValues("user", "denied").Inc()
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.metrics.Logins.WithLabelValues("user", "denied").Inc()
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	now := time.Now().UTC()

	if err := h.lastLogins.TouchLastLogin(cctx, foundUser.ID, now); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	token, err := h.jwt.GenerateUserToken(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.metrics.Logins.WithLabelValues("user", "ok").Inc()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"email":     foundUser.Email,
			"lastLogin": now,
		},
	})
}

func (h *AuthHandler) AdminLogin(ctx *gin.Context) {
	var req AdminLoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if email != h.admin.Email || security.CheckPassword(h.admin.PasswordHash, req.Password) != nil {
		h.metrics.Logins.WithLabelValues("admin", "denied").Inc()
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid admin credentials")
		return
	}

	token, err := h.jwt.GenerateAdminToken(h.admin.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.metrics.Logins.WithLabelValues("admin", "ok").Inc()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Admin login successful",
		"token":   token,
	})
}
