package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/observability"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half_open"
)

type ProtectedMailerConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open

	Driver string
	Prom   *observability.Prom
}

// ProtectedMailer bounds each send with a timeout and stops calling a
// failing transport until the cooldown has passed.
type ProtectedMailer struct {
	inner Mailer
	cfg   ProtectedMailerConfig
	now   func() time.Time
	mu    sync.Mutex

	state string

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedMailer(inner Mailer, cfg ProtectedMailerConfig) *ProtectedMailer {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if cfg.Driver == "" {
		cfg.Driver = "unknown"
	}

	return &ProtectedMailer{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (p *ProtectedMailer) Send(ctx context.Context, msg Message) error {
	// fail-fast gate
	if !p.allowRequest() {
		p.count("rejected")
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := p.inner.Send(sendCtx, msg)

	p.afterRequest(err)

	if err != nil {
		p.count("failed")
		return err
	}
	p.count("sent")
	return nil
}

func (p *ProtectedMailer) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *ProtectedMailer) count(result string) {
	if p.cfg.Prom != nil {
		p.cfg.Prom.IncMail(p.cfg.Driver, result)
	}
}

func (p *ProtectedMailer) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateClosed:
		return true
	case stateOpen:
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = stateHalfOpen
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *ProtectedMailer) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	// a failed trial call reopens immediately
	if p.state == stateHalfOpen {
		p.state = stateOpen
		p.openedAt = p.now()
		return
	}

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
