// Package authstate tracks who is signed in and decides which views they
// may reach.
package authstate

import (
	"context"
	"slices"
	"sync"

	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
)

// Client is the part of lmssdk.Client the manager needs.
type Client interface {
	Session(ctx context.Context) (tokenstore.Session, error)
	Login(ctx context.Context, email, password string) (*lmssdk.LoginResponse, error)
	Register(ctx context.Context, req lmssdk.RegisterRequest) error
	Profile(ctx context.Context) (*lmssdk.Profile, error)
	Logout(ctx context.Context) error
}

// Manager owns the signed-in state of one application.
type Manager struct {
	client Client

	mu    sync.RWMutex
	user  *lmssdk.Profile
	roles []string
}

func NewManager(client Client) *Manager {
	return &Manager{client: client}
}

// Init restores the user from a stored session. Any failure leaves the
// manager signed out; it is not retried.
func (m *Manager) Init(ctx context.Context) {
	sess, err := m.client.Session(ctx)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to read stored session", "error", err)
		m.reset()
		return
	}
	if sess.AccessToken == "" {
		m.reset()
		return
	}
	_, _ = m.LoadProfile(ctx)
}

// LoadProfile fetches the current user. On failure the manager is left
// with no user and no roles and the error is returned.
func (m *Manager) LoadProfile(ctx context.Context) (*lmssdk.Profile, error) {
	p, err := m.client.Profile(ctx)
	if err != nil {
		slogx.FromContext(ctx).Debug("profile load failed", "error", err)
		m.reset()
		return nil, err
	}

	m.mu.Lock()
	m.user = p
	m.roles = slices.Clone(p.Roles)
	m.mu.Unlock()
	return clone(p), nil
}

// Login signs in and loads the profile. Only a failed sign-in is an error:
// when the profile cannot be loaded User stays nil but the roles from the
// login response are kept.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if _, err := m.LoadProfile(ctx); err != nil {
		slogx.FromContext(ctx).Warn("signed in but profile unavailable", "error", err)
		m.mu.Lock()
		m.roles = slices.Clone(resp.Roles)
		m.mu.Unlock()
	}
	return nil
}

// Register creates the account and signs in with it.
func (m *Manager) Register(ctx context.Context, req lmssdk.RegisterRequest) error {
	if err := m.client.Register(ctx, req); err != nil {
		return err
	}
	return m.Login(ctx, req.Email, req.Password)
}

// Logout clears the stored session and the signed-in user.
func (m *Manager) Logout(ctx context.Context) error {
	m.reset()
	return m.client.Logout(ctx)
}

// HandleSessionExpired signs the manager out. It matches the signature of
// lmssdk.WithSessionExpiredHook.
func (m *Manager) HandleSessionExpired(ctx context.Context, err error) {
	slogx.FromContext(ctx).Info("signed out after session expiry", "cause", err)
	m.reset()
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.roles = nil
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *lmssdk.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.user)
}

func (m *Manager) Roles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roles)
}

func (m *Manager) HasRole(role string) bool {
	return slices.Contains(m.Roles(), role)
}

func (m *Manager) HasAnyRole(roles ...string) bool {
	return hasAny(m.Roles(), roles)
}

// Authorize checks the signed-in user against allowed.
func (m *Manager) Authorize(allowed ...string) Decision {
	return Authorize(m.User(), allowed...)
}

// Guard checks the signed-in user against the route covering path. Paths
// outside Routes are public.
func (m *Manager) Guard(path string) Decision {
	r, ok := RouteFor(path)
	if !ok {
		return Decision{Allowed: true}
	}
	return m.Authorize(r.Roles...)
}

func clone(p *lmssdk.Profile) *lmssdk.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Roles = slices.Clone(p.Roles)
	return &cp
}
