package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Auth flows
	OTPIssued        prometheus.Counter
	OTPVerifications *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	MailDeliveries   *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authsystem",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authsystem",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "authsystem",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),

		OTPIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "authsystem",
				Subsystem: "otp",
				Name:      "issued_total",
				Help:      "One-time codes issued (sends and resends).",
			},
		),
		OTPVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authsystem",
				Subsystem: "otp",
				Name:      "verifications_total",
				Help:      "OTP verification attempts by verdict.",
			},
			[]string{"verdict"}, // verdict=ok|invalid|expired
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authsystem",
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Login attempts by principal kind and outcome.",
			},
			[]string{"kind", "result"}, // kind=user|admin result=ok|denied
		),
		MailDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authsystem",
				Subsystem: "mail",
				Name:      "deliveries_total",
				Help:      "OTP mail delivery attempts by result.",
			},
			[]string{"result"}, // result=ok|error
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.OTPIssued, p.OTPVerifications, p.Logins, p.MailDeliveries)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
