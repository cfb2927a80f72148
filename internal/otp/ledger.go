package otp

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

type Result int

const (
	Ok Result = iota
	Invalid
	Expired
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case Invalid:
		return "invalid"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

type entry struct {
	code string
	exp  time.Time
}

// Ledger holds at most one pending code per email. Codes are single-use and
// expire lazily on Verify; there is no background sweep, so entries for
// abandoned registrations stay until process restart.
type Ledger struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry
}

func New(ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}

	return &Ledger{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

// Issue generates a fresh 6-digit code for the email, replacing any pending
// one, and returns it for delivery. The code is never kept anywhere else.
func (l *Ledger) Issue(email string) string {
	code := generateCode()

	l.mu.Lock()
	l.m[email] = entry{code: code, exp: time.Now().Add(l.ttl)}
	l.mu.Unlock()

	return code
}

// Verify checks the submitted code against the pending entry.
// Ok consumes the entry; Expired removes it; Invalid leaves it in place so
// the client can retry until the code expires.
func (l *Ledger) Verify(email, submitted string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[email]

	if !ok || e.code != submitted {
		return Invalid
	}

	if time.Now().After(e.exp) {
		delete(l.m, email)
		return Expired
	}

	delete(l.m, email)
	return Ok
}

// generateCode draws uniformly from 100000-999999.
func generateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))

	if err != nil {
		// crypto/rand failing means the process has bigger problems
		panic(err)
	}

	v := n.Int64() + 100000

	digits := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}

	return string(digits)
}
