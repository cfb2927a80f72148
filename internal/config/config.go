package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	// Token signing
	JWTSecret     string
	UserTokenTTL  time.Duration
	AdminTokenTTL time.Duration

	// Static admin principal (never stored with regular users)
	AdminEmail    string
	AdminPassword string

	// Credential store backend: "memory" (default) or "postgres"
	StoreBackend string
	DBURL        string

	// OTP delivery
	OTPTTL   time.Duration
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Rate limiting
	OTPLimit      int
	OTPWindow     time.Duration
	LoginLimit    int
	LoginWindow   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string
	OTLPEndpoint   string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:  env,
		Port: port,

		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key"),
		UserTokenTTL:  time.Duration(getEnvInt("USER_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		AdminTokenTTL: time.Duration(getEnvInt("ADMIN_TOKEN_TTL_MINUTES", 480)) * time.Minute,

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		DBURL:        buildDBURL(),

		OTPTTL:   time.Duration(getEnvInt("OTP_TTL_SECONDS", 120)) * time.Second,
		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", `"Auth System" <no-reply@authsystem.com>`),

		OTPLimit:      getEnvInt("OTP_RATE_LIMIT", 5),
		OTPWindow:     time.Duration(getEnvInt("OTP_RATE_WINDOW_MINUTES", 15)) * time.Minute,
		LoginLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginWindow:   time.Duration(getEnvInt("LOGIN_RATE_WINDOW_MINUTES", 60)) * time.Minute,
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authsystem")
	pass := getEnv("DB_PASSWORD", "authsystem")
	name := getEnv("DB_NAME", "authsystem")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
		}

		return num
	}
	return fallback
}
