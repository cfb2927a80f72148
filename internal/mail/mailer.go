package mail

import "context"

type SendOTPInput struct {
	Email  string
	Code   string
	Resend bool
}

// Mailer delivers a one-time code to an address. Implementations make a
// single attempt; the caller decides what a failure means.
type Mailer interface {
	SendOTP(ctx context.Context, in SendOTPInput) error
}
