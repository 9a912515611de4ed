package verify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/clients"
)

type State string

const (
	StateIdle        State = "idle"
	StatePolling     State = "polling"
	StateVerified    State = "verified"
	StateRedirecting State = "redirecting"
)

// ErrEmailNotResolved gates the resend action until a status response has
// carried the account's email address.
var ErrEmailNotResolved = errors.New("email not resolved yet")

const watchRetention = 10 * time.Minute

type Status struct {
	ID     string `json:"id"`
	State  State  `json:"state"`
	Email  string `json:"email,omitempty"`
	Target string `json:"target,omitempty"`
}

// Watch polls the verification status of one token until it is verified or
// torn down. After verification it waits a fixed delay and settles in the
// redirecting state pointing at the portal's login path.
type Watch struct {
	id        string
	token     string
	loginPath string
	client    *clients.Clinic

	mu    sync.Mutex
	state State
	email string

	cancel context.CancelFunc
	done   chan struct{}
}

type Manager struct {
	ctx           context.Context
	client        *clients.Clinic
	interval      time.Duration
	redirectDelay time.Duration
	watchTTL      time.Duration

	mu      sync.Mutex
	byID    map[string]*Watch
	byToken map[string]*Watch
}

func NewManager(ctx context.Context, client *clients.Clinic, interval, redirectDelay, watchTTL time.Duration) *Manager {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if redirectDelay <= 0 {
		redirectDelay = 4 * time.Second
	}
	return &Manager{
		ctx:           ctx,
		client:        client,
		interval:      interval,
		redirectDelay: redirectDelay,
		watchTTL:      watchTTL,
		byID:          make(map[string]*Watch),
		byToken:       make(map[string]*Watch),
	}
}

// Start begins polling for a token, reusing the live watch when the same
// token is opened again (a reloaded page must not double-poll).
func (m *Manager) Start(token, loginPath string) *Watch {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byToken[token]; ok && existing.reusable() {
		return existing
	}

	ctx := m.ctx
	var cancel context.CancelFunc
	if m.watchTTL > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.watchTTL)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}

	watch := &Watch{
		id:        uuid.NewString(),
		token:     token,
		loginPath: loginPath,
		client:    m.client,
		state:     StatePolling,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.byID[watch.id] = watch
	m.byToken[token] = watch

	go watch.run(ctx, m.interval, m.redirectDelay)
	go m.reap(watch)
	return watch
}

// reap drops a finished watch after a retention window, so a browser can
// still read the terminal state before the entry goes away.
func (m *Manager) reap(watch *Watch) {
	<-watch.done
	timer := time.NewTimer(watchRetention)
	defer timer.Stop()
	select {
	case <-m.ctx.Done():
	case <-timer.C:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID[watch.id] == watch {
		delete(m.byID, watch.id)
	}
	if m.byToken[watch.token] == watch {
		delete(m.byToken, watch.token)
	}
}

func (m *Manager) Get(id string) (*Watch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	watch, ok := m.byID[id]
	return watch, ok
}

// Stop cancels every live watch. Used on shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, watch := range m.byID {
		watch.cancel()
	}
}

func (w *Watch) run(ctx context.Context, interval, redirectDelay time.Duration) {
	defer close(w.done)
	defer w.cancel()

	// First check fires immediately; the ticker covers the rest.
	if w.poll(ctx) {
		w.settle(ctx, redirectDelay)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.poll(ctx) {
				w.settle(ctx, redirectDelay)
				return
			}
		}
	}
}

// poll reports whether verification just succeeded. Transport errors are
// logged and swallowed: a transient failure must not kill an otherwise
// successful verification in progress.
func (w *Watch) poll(ctx context.Context) bool {
	status, err := w.client.CheckVerificationStatus(ctx, w.token)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("verification poll error: %v", err)
		}
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.email == "" && status.Email != "" {
		w.email = status.Email
	}
	if status.Verified && w.state == StatePolling {
		w.state = StateVerified
		return true
	}
	return false
}

func (w *Watch) settle(ctx context.Context, redirectDelay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(redirectDelay):
	}
	w.mu.Lock()
	w.state = StateRedirecting
	w.mu.Unlock()
}

func (w *Watch) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	status := Status{ID: w.id, State: w.state, Email: w.email}
	if w.state == StateRedirecting {
		status.Target = w.loginPath
	}
	return status
}

// Resend re-sends the verification email. Only available once a poll has
// resolved the address.
func (w *Watch) Resend(ctx context.Context) error {
	w.mu.Lock()
	email := w.email
	w.mu.Unlock()
	if email == "" {
		return ErrEmailNotResolved
	}
	return w.client.ResendVerification(ctx, email)
}

// Done is closed when the watch's goroutine has exited. Exposed for tests.
// reusable reports whether a reopened page may attach to this watch. A watch
// whose goroutine exited before reaching a terminal state (its TTL ran out
// mid-poll) would otherwise report polling forever, so it is replaced instead.
func (w *Watch) reusable() bool {
	select {
	case <-w.done:
	default:
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateVerified || w.state == StateRedirecting
}

func (w *Watch) Done() <-chan struct{} {
	return w.done
}
