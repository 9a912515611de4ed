package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/clients"
	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
)

const connectionErrorMessage = "No se pudo conectar con el servidor. Intente nuevamente."

type Result struct {
	OK      bool
	Message string
}

type Snapshot struct {
	Identity *model.Identity
	Loading  bool
}

// Store is the single owner of "who is logged in" for one visitor. Other
// components read snapshots; nothing mutates identity outside the store.
type Store struct {
	client *clients.Clinic

	mu       sync.Mutex
	cookies  string
	identity *model.Identity
	loading  bool
	probeSeq uint64
}

func New(client *clients.Clinic, cookies string) *Store {
	return &Store{client: client, cookies: cookies, loading: true}
}

// CheckAuth probes the session endpoint and replaces the identity with the
// result. It always ends with loading=false, whatever the probe did. A probe
// superseded by a newer one must not write its identity back: the sequence
// number taken at the start guards against out-of-order resolution.
func (s *Store) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.probeSeq++
	seq := s.probeSeq
	cookies := s.cookies
	s.mu.Unlock()

	identity, err := s.client.Probe(ctx, cookies)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.probeSeq {
		if err != nil {
			s.identity = nil
		} else {
			s.identity = &identity
		}
	}
	// Last probe to resolve wins the loading transition, so a caller can
	// never observe loading=true forever.
	s.loading = false
}

// Login authenticates against the core API and, on success, re-runs CheckAuth
// so the stored identity always comes from the probe, not the login body. The
// returned Set-Cookie headers must be forwarded to the browser. Never returns
// an error: failures are folded into the Result message.
func (s *Store) Login(ctx context.Context, email, password string, expected model.Role) (Result, []string) {
	s.mu.Lock()
	cookies := s.cookies
	s.mu.Unlock()

	identity, setCookies, err := s.client.Login(ctx, email, password, expected, cookies)
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return Result{Message: apiErr.Message}, setCookies
		}
		return Result{Message: connectionErrorMessage}, setCookies
	}

	s.mu.Lock()
	s.identity = &identity
	s.cookies = mergeCookies(s.cookies, setCookies)
	s.mu.Unlock()

	s.CheckAuth(ctx)
	return Result{OK: true}, setCookies
}

// Logout invalidates the server session best-effort and clears the identity
// unconditionally, so a network error cannot leave a stuck authenticated UI.
func (s *Store) Logout(ctx context.Context) []string {
	s.mu.Lock()
	cookies := s.cookies
	s.mu.Unlock()

	setCookies, err := s.client.Logout(ctx, cookies)
	if err != nil {
		log.Printf("logout request failed: %v", err)
	}

	s.mu.Lock()
	s.identity = nil
	s.loading = false
	s.mu.Unlock()
	return setCookies
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Loading: s.loading}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	return snap
}

// mergeCookies folds the name=value pairs of Set-Cookie headers into an
// existing Cookie header so the post-login probe carries the fresh session.
func mergeCookies(cookies string, setCookies []string) string {
	pairs := map[string]string{}
	var order []string

	add := func(pair string) {
		pair = strings.TrimSpace(pair)
		name, _, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return
		}
		if _, seen := pairs[name]; !seen {
			order = append(order, name)
		}
		pairs[name] = pair
	}

	for _, pair := range strings.Split(cookies, ";") {
		add(pair)
	}
	for _, raw := range setCookies {
		first, _, _ := strings.Cut(raw, ";")
		add(first)
	}

	merged := make([]string, 0, len(order))
	for _, name := range order {
		merged = append(merged, pairs[name])
	}
	return strings.Join(merged, "; ")
}
