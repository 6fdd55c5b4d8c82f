package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

type capturePublisher struct {
	mu    sync.Mutex
	lines []string
}

func (c *capturePublisher) Publish(_ context.Context, eventType string, payload any) {
	if eventType != domain.EventSessionLog {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, payload.(domain.SessionLog).Message)
}

func testConfig() Config {
	return Config{
		LoginDelay:   5 * time.Millisecond,
		FailSecret:   "wrong_password",
		ErrorCode:    -6,
		ErrorMessage: "Terminal: Authorization failed",
		Balance:      10000,
		Equity:       10000,
		Currency:     "USD",
		LogCapacity:  100,
	}
}

func TestLoginSuccess(t *testing.T) {
	pub := &capturePublisher{}
	s := NewSession(testConfig(), pub, nil, nil, nil)

	err := s.Login(context.Background(), domain.Credentials{Login: "5001", Password: "pw", Server: "Demo-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	st := s.Status()
	if !st.Connected || st.State != domain.SessionConnected {
		t.Fatalf("status = %+v", st)
	}
	if st.Account == nil || st.Account.Login != "5001" || st.Account.Server != "Demo-1" || st.Account.Balance != 10000 || st.Account.Currency != "USD" {
		t.Fatalf("account = %+v", st.Account)
	}
	if !strings.HasSuffix(st.Logs[0], "] Attempting to connect to Demo-1...") {
		t.Fatalf("first line = %q", st.Logs[0])
	}
	if !strings.HasSuffix(st.Logs[1], "] Successfully connected to MetaTrader 5") {
		t.Fatalf("second line = %q", st.Logs[1])
	}
	if len(pub.lines) != len(st.Logs) {
		t.Fatalf("published %d lines, buffer has %d", len(pub.lines), len(st.Logs))
	}
}

func TestLoginSentinelFails(t *testing.T) {
	s := NewSession(testConfig(), nil, nil, nil, nil)

	err := s.Login(context.Background(), domain.Credentials{Login: "5001", Password: "wrong_password", Server: "Demo-1"})
	var authErr *AuthError
	if !errors.As(err, &authErr) || !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if err.Error() != "Error -6: Terminal: Authorization failed" {
		t.Fatalf("message = %q", err.Error())
	}
	st := s.Status()
	if st.Connected || st.Account != nil || st.State != domain.SessionDisconnected {
		t.Fatalf("status after failure = %+v", st)
	}
	if last := st.Logs[len(st.Logs)-1]; !strings.HasSuffix(last, "Login failed: Error -6: Terminal: Authorization failed") {
		t.Fatalf("last line = %q", last)
	}
}

func TestFailedLoginKeepsExistingConnection(t *testing.T) {
	s := NewSession(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()
	if err := s.Login(ctx, domain.Credentials{Login: "1", Password: "ok", Server: "A"}); err != nil {
		t.Fatal(err)
	}
	_ = s.Login(ctx, domain.Credentials{Login: "2", Password: "wrong_password", Server: "B"})

	st := s.Status()
	if !st.Connected || st.Account.Login != "1" {
		t.Fatalf("status = %+v", st)
	}
}

func TestLoginValidation(t *testing.T) {
	s := NewSession(testConfig(), nil, nil, nil, nil)
	err := s.Login(context.Background(), domain.Credentials{Password: "x", Server: " "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(s.Status().Logs) != 0 {
		t.Fatal("rejected request must not log")
	}
}

func TestLogBufferCapped(t *testing.T) {
	cfg := testConfig()
	cfg.LoginDelay = 0
	s := NewSession(cfg, nil, nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_ = s.Login(ctx, domain.Credentials{Login: "1", Password: "wrong_password", Server: "S"})
	}
	logs := s.Status().Logs
	if len(logs) != 100 {
		t.Fatalf("buffer length = %d, want 100", len(logs))
	}
	if !strings.Contains(logs[len(logs)-1], "Login failed") {
		t.Fatalf("newest line = %q", logs[len(logs)-1])
	}
}

func TestStatusDuringPendingLogin(t *testing.T) {
	cfg := testConfig()
	cfg.LoginDelay = 100 * time.Millisecond
	s := NewSession(cfg, nil, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.Login(context.Background(), domain.Credentials{Login: "1", Password: "ok", Server: "S"})
	}()

	deadline := time.Now().Add(time.Second)
	for s.Status().State != domain.SessionPending {
		if time.Now().After(deadline) {
			t.Fatal("never observed pending state")
		}
		time.Sleep(time.Millisecond)
	}
	if s.Status().Connected {
		t.Fatal("connected before the delay elapsed")
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s.Status().State != domain.SessionConnected {
		t.Fatal("not connected after login")
	}
}

func TestLoginOutlivesCallerCancellation(t *testing.T) {
	pub := &capturePublisher{}
	cfg := testConfig()
	cfg.LoginDelay = 50 * time.Millisecond
	s := NewSession(cfg, pub, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if err := s.Login(ctx, domain.Credentials{Login: "1", Password: "ok", Server: "S"}); err != nil {
		t.Fatalf("Login after caller went away: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context was never cancelled")
	}

	st := s.Status()
	if st.State != domain.SessionConnected || !st.Connected || st.Account == nil {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Logs) != 3 || !strings.HasSuffix(st.Logs[1], "] Successfully connected to MetaTrader 5") {
		t.Fatalf("logs = %q", st.Logs)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.lines) != 3 {
		t.Fatalf("broadcast lines = %q", pub.lines)
	}
}

// stallingPublisher blocks every Publish until release is closed.
type stallingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stallingPublisher) Publish(context.Context, string, any) {
	p.once.Do(func() { close(p.entered) })
	<-p.release
}

func TestStatusDoesNotWaitOnSlowBroadcast(t *testing.T) {
	pub := &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(testConfig(), pub, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.Login(context.Background(), domain.Credentials{Login: "1", Password: "ok", Server: "S"})
	}()
	select {
	case <-pub.entered:
	case <-time.After(time.Second):
		t.Fatal("login never broadcast")
	}

	got := make(chan domain.SessionSnapshot, 1)
	go func() { got <- s.Status() }()
	select {
	case st := <-got:
		if st.State != domain.SessionPending || len(st.Logs) != 1 {
			t.Fatalf("status during broadcast = %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Status blocked behind a stalled broadcast")
	}

	close(pub.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !s.Connected() {
		t.Fatal("not connected after broadcast resumed")
	}
}

func TestLogout(t *testing.T) {
	s := NewSession(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()
	if s.Logout(ctx) {
		t.Fatal("logout without a session should report false")
	}
	_ = s.Login(ctx, domain.Credentials{Login: "1", Password: "ok", Server: "S"})
	if !s.Logout(ctx) || s.Connected() || s.Status().Account != nil {
		t.Fatal("logout did not clear the session")
	}
}

func TestRunPollStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = time.Millisecond
	s := NewSession(cfg, nil, nil, nil, nil)
	_ = s.Login(context.Background(), domain.Credentials{Login: "1", Password: "ok", Server: "S"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.RunPoll(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.Status().Connected {
		t.Fatal("poll must not drop the session")
	}
}
