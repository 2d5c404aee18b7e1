package authstate_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/authstate"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk/lmstest"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *lmstest.Server
	store   *tokenstore.Memory
	client  *lmssdk.Client
	manager *authstate.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{srv: lmstest.NewServer(t), store: tokenstore.NewMemory()}
	f.client = lmssdk.New(f.srv.URL, f.store,
		lmssdk.WithLogger(slogx.Discard()),
		lmssdk.WithSessionExpiredHook(func(ctx context.Context, err error) {
			f.manager.HandleSessionExpired(ctx, err)
		}),
	)
	f.manager = authstate.NewManager(f.client)
	return f
}

func TestManagerLoginLoadsProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.manager.Login(t.Context(), lmstest.InstructorEmail, lmstest.Password))

	user := f.manager.User()
	require.NotNil(t, user)
	require.Equal(t, lmstest.InstructorEmail, user.Email)
	require.True(t, f.manager.HasRole(authstate.RoleInstructor))
	require.False(t, f.manager.HasRole(authstate.RoleAdmin))
	require.True(t, f.manager.HasAnyRole(authstate.RoleAdmin, authstate.RoleInstructor))
	require.Equal(t, authstate.InstructorPath, authstate.HomeFor(f.manager.Roles()))

	require.True(t, f.manager.Guard("/instructor/courses").Allowed)
	require.Equal(t, authstate.Decision{Redirect: authstate.DashboardPath}, f.manager.Guard("/admin"))
	require.True(t, f.manager.Guard("/login").Allowed)
}

func TestManagerLoginFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.manager.Login(t.Context(), lmstest.LearnerEmail, "wrong")
	require.Equal(t, http.StatusUnauthorized, lmssdk.StatusCode(err))
	require.Nil(t, f.manager.User())
	require.Equal(t, authstate.Decision{Redirect: authstate.LoginPath}, f.manager.Guard("/dashboard"))
}

func TestManagerInitRestoresStoredSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tokens, err := f.srv.IssueTokens(lmstest.AdminEmail)
	require.NoError(t, err)
	require.NoError(t, tokenstore.Save(t.Context(), f.store, tokenstore.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}))

	f.manager.Init(t.Context())

	require.NotNil(t, f.manager.User())
	require.True(t, f.manager.Guard("/admin").Allowed)
}

func TestManagerInitWithoutSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.manager.Init(t.Context())

	require.Nil(t, f.manager.User())
	require.Zero(t, f.srv.Count(http.MethodGet, "/auth/profile"))
}

func TestManagerInitWithDeadSessionSignsOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.Set(t.Context(), tokenstore.AccessKey, "not-a-token"))

	f.manager.Init(t.Context())

	require.Nil(t, f.manager.User())
	require.Equal(t, 1, f.srv.Count(http.MethodGet, "/auth/profile"))

	sess, err := tokenstore.Load(t.Context(), f.store)
	require.NoError(t, err)
	require.True(t, sess.Empty())
}

func TestManagerSignedOutOnSessionExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.manager.Login(t.Context(), lmstest.LearnerEmail, lmstest.Password))
	require.NotNil(t, f.manager.User())

	f.srv.ExpireAccessTokens()
	f.srv.RevokeRefreshTokens()

	_, err := f.client.ListEnrollments(t.Context())
	require.ErrorIs(t, err, lmssdk.ErrSessionExpired)
	require.Nil(t, f.manager.User())
	require.Empty(t, f.manager.Roles())
}

func TestManagerRegisterThenLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.manager.Register(t.Context(), lmssdk.RegisterRequest{
		Email: "fresh@example.com", Username: "fresh", Password: "pw",
	}))
	require.True(t, f.manager.HasRole(authstate.RoleLearner))

	require.NoError(t, f.manager.Logout(t.Context()))
	require.Nil(t, f.manager.User())

	sess, err := tokenstore.Load(t.Context(), f.store)
	require.NoError(t, err)
	require.True(t, sess.Empty())
}

// stubClient answers from fixed values so profile failures can be injected
// without a server.
type stubClient struct {
	profile    *lmssdk.Profile
	profileErr error
}

func (s *stubClient) Session(context.Context) (tokenstore.Session, error) {
	return tokenstore.Session{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubClient) Login(context.Context, string, string) (*lmssdk.LoginResponse, error) {
	return &lmssdk.LoginResponse{AccessToken: "access", RefreshToken: "refresh", Roles: []string{authstate.RoleAdmin}}, nil
}

func (s *stubClient) Register(context.Context, lmssdk.RegisterRequest) error { return nil }

func (s *stubClient) Profile(context.Context) (*lmssdk.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubClient) Logout(context.Context) error { return nil }

func TestManagerFailedReloadClearsRoles(t *testing.T) {
	t.Parallel()

	client := &stubClient{profile: &lmssdk.Profile{ID: "1", Email: lmstest.AdminEmail, Roles: []string{authstate.RoleAdmin}}}
	m := authstate.NewManager(client)
	require.NoError(t, m.Login(t.Context(), lmstest.AdminEmail, lmstest.Password))
	require.True(t, m.HasRole(authstate.RoleAdmin))

	client.profileErr = errors.New("profile unavailable")
	m.Init(t.Context())

	require.Nil(t, m.User())
	require.Empty(t, m.Roles())
	require.False(t, m.HasRole(authstate.RoleAdmin))
	require.False(t, m.HasAnyRole(authstate.RoleAdmin, authstate.RoleLearner))
	require.Equal(t, authstate.Decision{Redirect: authstate.LoginPath}, m.Guard("/admin"))
}

func TestManagerLoginKeepsRolesWhenProfileFails(t *testing.T) {
	t.Parallel()

	client := &stubClient{profileErr: errors.New("profile unavailable")}
	m := authstate.NewManager(client)

	require.NoError(t, m.Login(t.Context(), lmstest.AdminEmail, lmstest.Password))
	require.Nil(t, m.User())
	require.Equal(t, []string{authstate.RoleAdmin}, m.Roles())
}
