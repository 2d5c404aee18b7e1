// Package lmstest runs an in-process fake of the LMS API for tests. It
// issues real HS256 access tokens and opaque refresh tokens and exposes
// controls for forcing the token failures the client has to survive.
package lmstest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/cryptox"
	"github.com/ministrylearn/ministrylearn/pkg/httpx"
	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
)

// Password is the password of every seeded user.
const Password = "password"

// Seeded accounts.
const (
	AdminEmail      = "admin@example.com"
	InstructorEmail = "instructor@example.com"
	LearnerEmail    = "learner@example.com"
)

var errUnknownToken = errors.New("lmstest: unknown access token")

// User is an account known to the fake. Password is only read by AddUser,
// which stores an Argon2id hash in its place.
type User struct {
	ID       string
	Email    string
	Username string
	Password string
	FullName string
	Campus   string
	Roles    []string

	passwordHash string
}

// Call is one request observed by the fake.
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Status        int
}

// Server is a fake LMS API. Its URL ends without the /api prefix; pass
// Server.URL straight to lmssdk.New.
type Server struct {
	*httptest.Server

	signer    *jwtx.HMACSigner
	accessTTL time.Duration
	logger    *slog.Logger
	loginRate *httpx.RateLimitConfig
	userRate  httpx.RateLimitConfig
	userLimit httpx.Middleware
	mux       *http.ServeMux

	mu             sync.Mutex
	nextID         int
	users          map[string]*User // by email
	access         map[string]string
	refresh        map[string]string // refresh fingerprint -> user id
	rotateRefresh  bool
	refreshFailure int
	calls          []Call

	data *dataset
}

type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithRotatingRefresh makes /auth/refresh return a new refresh token and
// revoke the one presented.
func WithRotatingRefresh() Option {
	return func(s *Server) { s.rotateRefresh = true }
}

// WithLogger sets the server's request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithLoginRateLimit throttles /auth/login and /auth/register per client IP.
func WithLoginRateLimit(cfg httpx.RateLimitConfig) Option {
	return func(s *Server) { s.loginRate = &cfg }
}

// WithUserRateLimit replaces httpx.LenientLimit as the per-user limit on
// authenticated endpoints.
func WithUserRateLimit(cfg httpx.RateLimitConfig) Option {
	return func(s *Server) { s.userRate = cfg }
}

// NewServer starts a fake seeded with an admin, an instructor and a learner
// and a small catalog. It is closed when t finishes.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := newServer(opts...)
	s.Server = httptest.NewServer(s.handler())
	t.Cleanup(s.Close)
	return s
}

func newServer(opts ...Option) *Server {
	signer, err := jwtx.NewHMACSigner([]byte(mustToken()))
	if err != nil {
		panic(err)
	}

	s := &Server{
		signer:    signer,
		accessTTL: jwtx.DefaultAccessTokenTTL,
		userRate:  httpx.LenientLimit,
		logger:    slogx.Discard(),
		mux:       http.NewServeMux(),
		users:     make(map[string]*User),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.seedUsers()
	s.data = seedData(s.userByEmail(InstructorEmail).ID, s.userByEmail(LearnerEmail).ID)
	s.routes()
	return s
}

func mustToken() string {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Server) handler() http.Handler {
	return httpx.Chain(s.mux, slogx.HTTPMiddleware(s.logger), s.record)
}

// record keeps a log of every request and its final status.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(slogx.RequestIDHeader),
			Status:        sw.status,
		})
		s.mu.Unlock()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ============================================================================
// Controls
// ============================================================================

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// FailRefresh makes /auth/refresh answer with status until called again
// with 0.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFailure = status
}

// Handle registers an extra route. When authenticated is true the handler
// sits behind the same bearer check as the real endpoints.
func (s *Server) Handle(pattern string, h http.Handler, authenticated bool) {
	if authenticated {
		h = s.authed(h)
	}
	s.mux.Handle(pattern, h)
}

// Calls returns every request seen so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests seen for method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many requests hit method and path.
func (s *Server) Count(method, path string) int {
	return len(s.CallsTo(method, path))
}

// ResetCalls forgets the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(u)
}

// IssueTokens mints a session for email as /auth/login would.
func (s *Server) IssueTokens(email string) (lmssdk.LoginResponse, error) {
	u := s.userByEmail(email)
	if u == nil {
		return lmssdk.LoginResponse{}, fmt.Errorf("lmstest: no user %q", email)
	}
	return s.issue(u)
}

// LastChat returns the most recent /ai/chat request body.
func (s *Server) LastChat() lmssdk.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.lastChat
}

// ============================================================================
// Tokens
// ============================================================================

func (s *Server) seedUsers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addUserLocked(User{Email: AdminEmail, Username: "admin", Password: Password, Roles: []string{"Admin"}})
	s.addUserLocked(User{Email: InstructorEmail, Username: "instructor", Password: Password, Roles: []string{"Instructor"}})
	s.addUserLocked(User{Email: LearnerEmail, Username: "learner", Password: Password, Roles: []string{"Learner"}, Campus: "Sydney"})
}

// seededHash is shared by every account created with Password so each
// server does not pay for three Argon2id derivations.
var seededHash = sync.OnceValue(func() string { return mustHash(Password) })

func mustHash(password string) string {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func (s *Server) addUserLocked(u User) string {
	if u.Password == Password {
		u.passwordHash = seededHash()
	} else {
		u.passwordHash = mustHash(u.Password)
	}
	u.Password = ""

	s.nextID++
	u.ID = fmt.Sprintf("%d", s.nextID)
	if u.Roles == nil {
		u.Roles = []string{}
	}
	s.users[u.Email] = &u
	return u.ID
}

func (s *Server) userByEmail(email string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

func (s *Server) userByID(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) issue(u *User) (lmssdk.LoginResponse, error) {
	access, err := s.issueAccess(u)
	if err != nil {
		return lmssdk.LoginResponse{}, err
	}
	refresh, err := s.issueRefresh(u)
	if err != nil {
		return lmssdk.LoginResponse{}, err
	}
	return lmssdk.LoginResponse{AccessToken: access, RefreshToken: refresh, Roles: u.Roles}, nil
}

func (s *Server) issueAccess(u *User) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.Email, u.Username, u.Roles, s.accessTTL, time.Now())
	tok, err := s.signer.Sign(claims)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.access[claims.ID] = u.ID
	s.mu.Unlock()
	return tok, nil
}

func (s *Server) issueRefresh(u *User) (string, error) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.refresh[cryptox.FingerprintToken(tok)] = u.ID
	s.mu.Unlock()
	return tok, nil
}

// Verify implements httpx.Verifier. Besides the signature and expiry it
// requires the token to still be live on the server.
func (s *Server) Verify(token string) (*jwtx.Claims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, live := s.access[claims.ID]
	s.mu.Unlock()
	if !live {
		return nil, errUnknownToken
	}
	return claims, nil
}
