package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rmendes/authsystem/internal/auth"
	"github.com/rmendes/authsystem/internal/config"
	"github.com/rmendes/authsystem/internal/domain/user"
	"github.com/rmendes/authsystem/internal/http/handlers"
	"github.com/rmendes/authsystem/internal/http/middlewares"
	"github.com/rmendes/authsystem/internal/mail"
	"github.com/rmendes/authsystem/internal/observability"
	"github.com/rmendes/authsystem/internal/otp"
)

const maxBodyBytes = 1 << 20 // 1 MiB, far above any payload this API takes

// UserStore is everything the handlers collectively need from a credential
// store backend. memory.UsersRepo and postgres.UsersRepo both satisfy it.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Delete(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type Deps struct {
	Cfg    config.Config
	Users  UserStore
	Ledger *otp.Ledger
	Mailer mail.Mailer

	// Optional: when set, rate limit windows are shared across processes.
	Redis *redis.Client

	// Optional readiness probe (DB ping for the postgres backend).
	Ping func() error

	// Optional: tests pass a private registry to avoid duplicate
	// registration; nil means a fresh one.
	Registry *prometheus.Registry
}

func NewRouter(log *slog.Logger, d Deps) (*gin.Engine, error) {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := d.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	metrics := observability.NewProm(registry)

	admin, err := handlers.NewAdminPrincipal(d.Cfg.AdminEmail, d.Cfg.AdminPassword)

	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.UserTokenTTL, d.Cfg.AdminTokenTTL)

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())

	if len(d.Cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	}

	r.Use(otelgin.Middleware("authsystem"))
	r.Use(metrics.GinHandleMiddleware())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// the OTP and login surfaces throttle independently, each per
	// client IP, so a flood of code requests cannot lock out sign-ins

	otpLimit := limiter(d, "otp", d.Cfg.OTPLimit, d.Cfg.OTPWindow,
		"Too many OTP requests from this IP, please try again later")
	loginLimit := limiter(d, "login", d.Cfg.LoginLimit, d.Cfg.LoginWindow,
		"Too many login attempts from this IP, please try again later")

	// health + metrics

	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up handlers

	registrationHandler := handlers.NewRegistrationHandler(d.Users, d.Users, d.Ledger, d.Mailer, metrics)
	authHandler := handlers.NewAuthHandler(d.Users, d.Users, jwtManager, admin, metrics)
	adminHandler := handlers.NewAdminUsersHandler(d.Users)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// registration + session routes take JSON bodies

	public := r.Group("/", middlewares.RequireJSON())
	public.POST("/send-otp", otpLimit, registrationHandler.SendOTP)
	public.POST("/verify-otp", otpLimit, registrationHandler.VerifyOTP)
	public.POST("/resend-otp", otpLimit, registrationHandler.ResendOTP)
	public.POST("/login", loginLimit, authHandler.Login)
	public.POST("/admin-login", loginLimit, authHandler.AdminLogin)

	// admin panel routes: a valid token alone is not enough, the role
	// claim must say admin

	adminGroup := r.Group("/", authMW.RequireAuth(), authMW.RequireAdmin())
	adminGroup.POST("/verify-admin-token", adminHandler.VerifyToken)
	adminGroup.GET("/get-users", adminHandler.ListUsers)
	adminGroup.GET("/get-user/:id", adminHandler.GetUser)
	adminGroup.DELETE("/delete-user/:id", adminHandler.DeleteUser)

	log.Info("router configured", "store", d.Cfg.StoreBackend, "redis_rate_limit", d.Redis != nil)

	return r, nil
}

func limiter(d Deps, prefix string, limit int, window time.Duration, message string) gin.HandlerFunc {
	if d.Redis != nil {
		return middlewares.NewRedisRateLimiter(d.Redis, "ratelimit:"+prefix, limit, window, message).Middleware()
	}

	return middlewares.NewRateLimiter(limit, window, message).Middleware()
}
