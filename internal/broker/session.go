// Package broker simulates the MetaTrader 5 terminal handshake. Nothing here
// talks to a real broker: credentials are accepted unless the password is the
// configured failure sentinel.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
)

// Publisher broadcasts session log lines.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Notifier forwards login alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config controls the simulated terminal.
type Config struct {
	LoginDelay   time.Duration
	FailSecret   string
	ErrorCode    int
	ErrorMessage string
	Balance      float64
	Equity       float64
	Currency     string
	LogCapacity  int
	PollInterval time.Duration
}

// AuthError is returned when the terminal rejects a login.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return domain.ErrAuthFailed }

// Session is the single process-wide broker session.
//
// Logins are not serialised: two overlapping logins each run their own
// delay and the later one to finish decides the attached account.
type Session struct {
	cfg      Config
	pub      Publisher
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	pubMu     sync.Mutex // held across a state change and its broadcast
	mu        sync.RWMutex
	connected bool
	pending   int
	account   *domain.Account
	logs      []string
	updated   time.Time
}

// NewSession returns a disconnected session.
func NewSession(cfg Config, pub Publisher, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Session {
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:      cfg,
		pub:      pub,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "broker")),
		now:      func() time.Time { return time.Now().UTC() },
		logs:     make([]string, 0, cfg.LogCapacity),
	}
	s.updated = s.now()
	return s
}

// Login runs the simulated handshake. It blocks for the configured delay and
// returns an *AuthError when the password is the failure sentinel, in which
// case the previous connection state is kept. The delay always runs to
// completion: a caller that goes away mid-handshake does not abort it, and the
// outcome is still logged and applied.
func (s *Session) Login(ctx context.Context, creds domain.Credentials) error {
	creds.Login = strings.TrimSpace(creds.Login)
	creds.Server = strings.TrimSpace(creds.Server)
	if creds.Login == "" || creds.Password == "" || creds.Server == "" {
		return fmt.Errorf("%w: login, password and server are required", domain.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)

	s.update(ctx, func() []domain.SessionLog {
		s.pending++
		return []domain.SessionLog{s.appendLocked(fmt.Sprintf("Attempting to connect to %s...", creds.Server))}
	})

	time.Sleep(s.cfg.LoginDelay)

	var err error
	s.update(ctx, func() []domain.SessionLog {
		s.pending--
		s.updated = s.now()
		if creds.Password == s.cfg.FailSecret {
			err = &AuthError{Code: s.cfg.ErrorCode, Message: s.cfg.ErrorMessage}
			return []domain.SessionLog{s.appendLocked("Login failed: " + err.Error())}
		}
		s.connected = true
		s.account = &domain.Account{
			Login:    creds.Login,
			Server:   creds.Server,
			Balance:  s.cfg.Balance,
			Equity:   s.cfg.Equity,
			Currency: s.cfg.Currency,
		}
		return []domain.SessionLog{
			s.appendLocked("Successfully connected to MetaTrader 5"),
			s.appendLocked(fmt.Sprintf("Account %s balance %.2f %s", creds.Login, s.cfg.Balance, s.cfg.Currency)),
		}
	})

	if err != nil {
		s.metrics.Login(false)
		s.logger.Warn("broker login rejected", slog.String("login", creds.Login), slog.String("server", creds.Server))
		return err
	}
	s.metrics.Login(true)
	s.logger.Info("broker session connected", slog.String("login", creds.Login), slog.String("server", creds.Server))
	s.notify(fmt.Sprintf("Account %s connected to %s", creds.Login, creds.Server))
	return nil
}

func (s *Session) notify(msg string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, "login", "MT5 login", msg); err != nil {
			s.logger.Warn("login notification failed", slog.String("error", err.Error()))
		}
	}()
}

// Logout drops the connection. It reports false when there was none.
func (s *Session) Logout(ctx context.Context) bool {
	var dropped bool
	s.update(ctx, func() []domain.SessionLog {
		if !s.connected {
			return nil
		}
		dropped = true
		s.connected = false
		s.account = nil
		s.updated = s.now()
		return []domain.SessionLog{s.appendLocked("Disconnected from MetaTrader 5")}
	})
	return dropped
}

// Status returns a copy of the session.
func (s *Session) Status() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.SessionSnapshot{
		Connected: s.connected,
		State:     domain.SessionDisconnected,
		Logs:      append([]string{}, s.logs...),
		UpdatedAt: s.updated,
	}
	switch {
	case s.pending > 0:
		snap.State = domain.SessionPending
	case s.connected:
		snap.State = domain.SessionConnected
	}
	if s.account != nil {
		acct := *s.account
		snap.Account = &acct
	}
	return snap
}

// Connected reports whether a login has succeeded and not been logged out.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// RunPoll refreshes the attached account every PollInterval while connected,
// until ctx is done.
func (s *Session) RunPoll(ctx context.Context) error {
	if s.cfg.PollInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *Session) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.account == nil {
		return
	}
	s.account.Balance = s.cfg.Balance
	s.account.Equity = s.cfg.Equity
	s.updated = s.now()
}

// update applies fn under mu and broadcasts the lines it returns after mu is
// released, so Status never waits on the bus. pubMu keeps the broadcast order
// equal to the buffer order.
func (s *Session) update(ctx context.Context, fn func() []domain.SessionLog) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	lines := fn()
	s.mu.Unlock()

	if s.pub == nil {
		return
	}
	for _, l := range lines {
		s.pub.Publish(ctx, domain.EventSessionLog, l)
	}
}

// appendLocked stamps msg and trims the buffer to capacity. Callers hold mu.
func (s *Session) appendLocked(msg string) domain.SessionLog {
	now := s.now()
	line := fmt.Sprintf("[%s] %s", now.Format("15:04:05"), msg)
	s.logs = append(s.logs, line)
	if over := len(s.logs) - s.cfg.LogCapacity; over > 0 {
		s.logs = append(s.logs[:0], s.logs[over:]...)
	}
	s.updated = now
	return domain.SessionLog{Message: line, Timestamp: now}
}
