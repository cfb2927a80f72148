package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rmendes/authsystem/internal/config"
	"github.com/rmendes/authsystem/internal/db"
	httpx "github.com/rmendes/authsystem/internal/http"
	"github.com/rmendes/authsystem/internal/mail"
	"github.com/rmendes/authsystem/internal/observability"
	"github.com/rmendes/authsystem/internal/otp"
	"github.com/rmendes/authsystem/internal/redisclient"
	"github.com/rmendes/authsystem/internal/repo/memory"
	"github.com/rmendes/authsystem/internal/repo/postgres"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(context.Background(), "authsystem", cfg.OTLPEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	// pick the credential store backend

	deps := httpx.Deps{
		Cfg:    cfg,
		Ledger: otp.New(cfg.OTPTTL),
		Mailer: newMailer(cfg, log),
	}

	switch cfg.StoreBackend {
	case "postgres":
		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}

		defer pool.Close()

		deps.Users = postgres.NewUsersRepo(pool)
		deps.Ping = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			return pool.Ping(ctx)
		}
	default:
		deps.Users = memory.NewUsersRepo()
	}

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		defer rc.Close()

		deps.Redis = rc.Raw()
	}

	// set up routers with the log
	router, err := httpx.NewRouter(log, deps)

	if err != nil {
		log.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func newMailer(cfg config.Config, log *slog.Logger) mail.Mailer {
	if cfg.SMTPHost != "" {
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		})
	}

	log.Info("SMTP not configured, OTP codes will be logged instead")

	return mail.NewLogMailer()
}
