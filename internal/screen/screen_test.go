package screen_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/notify"
	"github.com/aipms/client/internal/screen"
	"github.com/aipms/client/internal/sqlite"
	"github.com/aipms/client/internal/testserver"
)

type harness struct {
	backend *testserver.Backend
	store   *session.Store
	toasts  *notify.Center
	deps    screen.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	store, err := session.NewStore(context.Background(), sqlite.NewKeyValueRepository(db), nil)
	require.NoError(t, err)

	backend := testserver.New(t)
	client, err := api.New(backend.URL(), store)
	require.NoError(t, err)

	toasts := notify.NewCenter()
	return &harness{
		backend: backend,
		store:   store,
		toasts:  toasts,
		deps:    screen.Deps{API: client, Session: store, Notifier: toasts},
	}
}

// signIn stores a session for a backend user without going through the
// login screen.
func (h *harness) signIn(t *testing.T, username string, role session.Role) {
	t.Helper()
	h.backend.AddUser(username, "pw", string(role))
	require.NoError(t, h.store.Set(context.Background(), session.Session{
		AccessToken:  h.backend.IssueToken(username),
		RefreshToken: "refresh",
		Role:         role,
	}))
}

func mountAndWait(t *testing.T, s screen.Screen) screen.View {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Mount(ctx)
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("screen did not settle")
	}
	return s.View()
}

func titles(toasts []notify.Toast) []string {
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, t.Title)
	}
	return out
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("student lands on student dashboard", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddUser("alice", "secret", "Student")
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		res, err := s.Action(ctx, "login", map[string]string{"username": "alice", "password": "secret"})
		require.NoError(t, err)
		require.Equal(t, "/student-dashboard", res.Redirect)
		require.Equal(t, session.RoleStudent, h.store.Get().Role)
		require.NotEmpty(t, h.store.Get().RefreshToken)
	})

	for _, role := range []string{"Teacher", "HOD/Admin"} {
		t.Run(role+" lands on teacher dashboard", func(t *testing.T) {
			h := newHarness(t)
			h.backend.AddUser("tom", "pw", role)
			s := screen.NewLogin(h.deps)
			mountAndWait(t, s)

			res, err := s.Action(ctx, "login", map[string]string{"username": "tom", "password": "pw"})
			require.NoError(t, err)
			require.Equal(t, "/teacher-dashboard", res.Redirect)
			require.Equal(t, session.Role(role), h.store.Get().Role)
		})
	}

	t.Run("wrong password writes nothing", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddUser("alice", "secret", "Student")
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		res, err := s.Action(ctx, "login", map[string]string{"username": "alice", "password": "wrong"})
		require.NoError(t, err)
		require.Empty(t, res.Redirect)
		require.False(t, h.store.Get().Authenticated())

		toasts := h.toasts.Drain()
		require.Len(t, toasts, 1)
		require.Equal(t, "Login Failed", toasts[0].Title)
		require.Equal(t, "Invalid username or password. Try again.", toasts[0].Description)
	})

	t.Run("profile failure writes nothing", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddUser("alice", "secret", "Student")
		h.backend.Fail(http.MethodGet, "/auth/users/me/", http.StatusInternalServerError)
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		res, err := s.Action(ctx, "login", map[string]string{"username": "alice", "password": "secret"})
		require.NoError(t, err)
		require.Empty(t, res.Redirect)
		require.False(t, h.store.Get().Authenticated())
		require.Equal(t, []string{"Login Failed"}, titles(h.toasts.Drain()))
	})

	t.Run("unknown role writes nothing", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddUser("zed", "pw", "Janitor")
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		res, err := s.Action(ctx, "login", map[string]string{"username": "zed", "password": "pw"})
		require.NoError(t, err)
		require.Empty(t, res.Redirect)
		require.False(t, h.store.Get().Authenticated())
	})

	t.Run("blank username sends nothing", func(t *testing.T) {
		h := newHarness(t)
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		_, err := s.Action(ctx, "login", map[string]string{"username": " ", "password": "pw"})
		require.NoError(t, err)
		require.Zero(t, h.backend.TotalCalls())
	})

	t.Run("argument errors", func(t *testing.T) {
		h := newHarness(t)
		s := screen.NewLogin(h.deps)
		mountAndWait(t, s)

		_, err := s.Action(ctx, "login", map[string]string{"username": "a"})
		require.ErrorIs(t, err, screen.ErrMissingArgument)
		_, err = s.Action(ctx, "dance", nil)
		require.ErrorIs(t, err, screen.ErrUnknownAction)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := screen.NewRegister(h.deps)
	mountAndWait(t, s)

	res, err := s.Action(ctx, "register", map[string]string{"username": "bob", "email": "nope", "password": "pw"})
	require.NoError(t, err)
	require.Empty(t, res.Redirect)
	require.Equal(t, "email must be a valid email address", s.View().Error)
	require.Zero(t, h.backend.TotalCalls())
	h.toasts.Drain()

	res, err = s.Action(ctx, "register", map[string]string{"username": "bob", "email": "bob@example.com", "password": "pw"})
	require.NoError(t, err)
	require.Equal(t, "/", res.Redirect)
	require.Empty(t, s.View().Error)
	toasts := h.toasts.Drain()
	require.Equal(t, []string{"Registration Successful!"}, titles(toasts))
	require.Equal(t, "Your account has been created. Please log in.", toasts[0].Description)

	res, err = s.Action(ctx, "register", map[string]string{"username": "bob", "email": "bob@example.com", "password": "pw"})
	require.NoError(t, err)
	require.Empty(t, res.Redirect)
	require.Equal(t, "Registration failed. Please check your details.", s.View().Error)
}
