package mail

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogMailer is the dev/test transport: it prints the code instead of
// delivering it.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) SendOTP(ctx context.Context, in SendOTPInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	log.Printf("mail.otp email=%s code=%s resend=%v", in.Email, in.Code, in.Resend)
	return nil
}
