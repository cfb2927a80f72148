package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer sends the code over plain SMTP with STARTTLS, or implicit TLS
// when the port is 465. One attempt, no retry; the context bounds the dial.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, in SendOTPInput) error {
	subject := "Your OTP Code"
	line := "Your OTP code is: " + in.Code

	if in.Resend {
		subject = "Your New OTP Code"
		line = "Your new OTP code is: " + in.Code
	}

	body := line + "\r\nThis code will expire in 2 minutes.\r\n"

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + in.Email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return m.send(ctx, in.Email, msg)
}

func (m *SMTPMailer) send(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)

	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	if m.cfg.Port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: m.cfg.Host})
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)

	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}

	defer c.Close()

	if m.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return err
			}
		}
	}

	if m.cfg.User != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(fromAddress(m.cfg.From)); err != nil {
		return err
	}

	if err := c.Rcpt(to); err != nil {
		return err
	}

	wc, err := c.Data()

	if err != nil {
		return err
	}

	if _, err := wc.Write([]byte(msg)); err != nil {
		wc.Close()
		return err
	}

	if err := wc.Close(); err != nil {
		return err
	}

	return c.Quit()
}

// fromAddress strips a display name like `"Auth System" <no-reply@x.com>`
// down to the bare address for MAIL FROM.
func fromAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.LastIndex(from, ">")

	if start >= 0 && end > start {
		return from[start+1 : end]
	}

	return from
}
