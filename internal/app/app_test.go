package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/app"
	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
	"github.com/aipms/client/internal/screen"
	"github.com/aipms/client/internal/sqlite"
	"github.com/aipms/client/internal/testserver"
)

type fakeScreen struct {
	title  string
	params navigation.Params
	action func(ctx context.Context, name string, args map[string]string) (screen.Result, error)

	mu        sync.Mutex
	ctx       context.Context
	unmounted bool
	ready     chan struct{}
}

func (f *fakeScreen) Mount(ctx context.Context) {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()
	close(f.ready)
}

func (f *fakeScreen) Unmount() {
	f.mu.Lock()
	f.unmounted = true
	f.mu.Unlock()
}

func (f *fakeScreen) Ready() <-chan struct{} { return f.ready }

func (f *fakeScreen) View() screen.View {
	return screen.View{Title: f.title, Status: screen.StatusReady}
}

func (f *fakeScreen) Action(ctx context.Context, name string, args map[string]string) (screen.Result, error) {
	if f.action == nil {
		return screen.Result{}, screen.ErrUnknownAction
	}
	return f.action(ctx, name, args)
}

func (f *fakeScreen) lifecycle() (context.Context, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx, f.unmounted
}

// recorder builds fake screens and remembers them by pattern.
type recorder struct {
	mu      sync.Mutex
	built   map[string][]*fakeScreen
	actions map[string]func(context.Context, string, map[string]string) (screen.Result, error)
}

func newRecorder() *recorder {
	return &recorder{
		built:   map[string][]*fakeScreen{},
		actions: map[string]func(context.Context, string, map[string]string) (screen.Result, error){},
	}
}

func (r *recorder) factories() map[string]screen.Factory {
	out := map[string]screen.Factory{}
	for _, route := range navigation.Routes {
		pattern := route.Pattern
		out[pattern] = func(_ screen.Deps, params navigation.Params) screen.Screen {
			r.mu.Lock()
			defer r.mu.Unlock()
			s := &fakeScreen{title: pattern, params: params, action: r.actions[pattern], ready: make(chan struct{})}
			r.built[pattern] = append(r.built[pattern], s)
			return s
		}
	}
	return out
}

func (r *recorder) last(pattern string) *fakeScreen {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.built[pattern]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (r *recorder) count(pattern string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.built[pattern])
}

func newStore(t *testing.T, dsn string) *session.Store {
	t.Helper()
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	store, err := session.NewStore(context.Background(), sqlite.NewKeyValueRepository(db), nil)
	require.NoError(t, err)
	return store
}

func signIn(t *testing.T, store *session.Store, role session.Role) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), session.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Role:         role,
	}))
}

func TestNavigate_GuardRedirectsBeforeBuilding(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	a := app.New(newStore(t, ":memory:"), screen.Deps{}, nil, app.WithFactories(rec.factories()))

	path, err := a.Navigate(ctx, "/student-dashboard")
	require.NoError(t, err)
	require.Equal(t, "/", path)
	require.Equal(t, "/", a.Path())
	require.Zero(t, rec.count(navigation.PathStudentDashboard))
	require.Equal(t, 1, rec.count(navigation.PathLogin))

	path, err = a.Navigate(ctx, "/register")
	require.NoError(t, err)
	require.Equal(t, "/register", path)
}

func TestNavigate_UnknownPath(t *testing.T) {
	a := app.New(newStore(t, ":memory:"), screen.Deps{}, nil, app.WithFactories(newRecorder().factories()))
	_, err := a.Navigate(context.Background(), "/nowhere")
	require.ErrorIs(t, err, navigation.ErrRouteNotFound)

	_, err = a.View()
	require.ErrorIs(t, err, app.ErrNoScreen)
}

func TestNavigate_ReplacesScreenAndCancelsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, ":memory:")
	signIn(t, store, session.RoleStudent)
	rec := newRecorder()
	a := app.New(store, screen.Deps{}, nil, app.WithFactories(rec.factories()))

	_, err := a.Navigate(ctx, "/student-dashboard/")
	require.NoError(t, err)
	require.NoError(t, a.WaitReady(ctx))
	first := rec.last(navigation.PathStudentDashboard)
	life, unmounted := first.lifecycle()
	require.NoError(t, life.Err())
	require.False(t, unmounted)

	view, err := a.View()
	require.NoError(t, err)
	require.Equal(t, "/student-dashboard", view.Path)

	_, err = a.Navigate(ctx, "/ai-viva/7?tab=1")
	require.NoError(t, err)
	life, unmounted = first.lifecycle()
	require.ErrorIs(t, life.Err(), context.Canceled)
	require.True(t, unmounted)

	viva := rec.last(navigation.PathAIVivaProject)
	require.Equal(t, navigation.Params{"projectId": "7"}, viva.params)
	require.Equal(t, "/ai-viva/7", a.Path())
}

func TestAction_CancelledWhenScreenUnmounts(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, ":memory:")
	signIn(t, store, session.RoleStudent)
	rec := newRecorder()
	started := make(chan struct{})
	rec.actions[navigation.PathAIChat] = func(ctx context.Context, _ string, _ map[string]string) (screen.Result, error) {
		close(started)
		<-ctx.Done()
		return screen.Result{Redirect: navigation.PathArchive}, nil
	}
	a := app.New(store, screen.Deps{}, nil, app.WithFactories(rec.factories()))
	_, err := a.Navigate(ctx, navigation.PathAIChat)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Action(ctx, "send", nil) }()
	<-started

	_, err = a.Navigate(ctx, navigation.PathSubmit)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("action was not cancelled")
	}
	require.Equal(t, navigation.PathSubmit, a.Path(), "redirect from an unmounted screen is dropped")
	require.Zero(t, rec.count(navigation.PathArchive))
}

func TestAction_FollowsRedirect(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, ":memory:")
	rec := newRecorder()
	rec.actions[navigation.PathLogin] = func(ctx context.Context, _ string, _ map[string]string) (screen.Result, error) {
		if err := store.Set(ctx, session.Session{AccessToken: "a", RefreshToken: "r", Role: session.RoleTeacher}); err != nil {
			return screen.Result{}, err
		}
		return screen.Result{Redirect: navigation.Landing(session.RoleTeacher)}, nil
	}
	a := app.New(store, screen.Deps{}, nil, app.WithFactories(rec.factories()))

	err := a.Action(ctx, "login", nil)
	require.ErrorIs(t, err, app.ErrNoScreen)

	_, err = a.Navigate(ctx, "/")
	require.NoError(t, err)
	require.NoError(t, a.Action(ctx, "login", nil))
	require.Equal(t, "/teacher-dashboard", a.Path())
}

func TestAction_PropagatesArgumentErrors(t *testing.T) {
	ctx := context.Background()
	a := app.New(newStore(t, ":memory:"), screen.Deps{}, nil, app.WithFactories(newRecorder().factories()))
	_, err := a.Navigate(ctx, "/")
	require.NoError(t, err)
	require.ErrorIs(t, a.Action(ctx, "dance", nil), screen.ErrUnknownAction)
}

func TestShell_MenuFollowsSession(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, ":memory:")
	a := app.New(store, screen.Deps{}, nil, app.WithFactories(newRecorder().factories()))
	shell := app.NewShell(a, nil)
	defer shell.Close()

	require.Equal(t, navigation.SignedOutMenu, shell.Menu())

	var changes []app.Change
	remove := shell.OnChange(func(c app.Change) { changes = append(changes, c) })

	signIn(t, store, session.RoleHODAdmin)
	paths := func(entries []navigation.MenuEntry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Path)
		}
		return out
	}
	require.Equal(t, []string{"/teacher-dashboard", "/ai-chat", "/analytics", "/admin", "/top-projects"}, paths(shell.Menu()))
	require.Len(t, changes, 1)
	require.Equal(t, session.OriginLocal, changes[0].Origin)

	_, err := a.Navigate(ctx, "/admin")
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx))
	require.Equal(t, "/", a.Path())
	require.Equal(t, navigation.SignedOutMenu, shell.Menu())
	require.Len(t, changes, 2)
	require.False(t, store.Get().Authenticated())

	remove()
	signIn(t, store, session.RoleStudent)
	require.Len(t, changes, 2)
}

func TestShell_ExternalSignOutLeavesGuardedScreen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "client.db")
	local := newStore(t, dsn)
	other := newStore(t, dsn)

	signIn(t, local, session.RoleStudent)
	_, err := other.Refresh(ctx)
	require.NoError(t, err)

	rec := newRecorder()
	a := app.New(local, screen.Deps{}, nil, app.WithFactories(rec.factories()))
	shell := app.NewShell(a, nil)
	defer shell.Close()

	var origins []session.Origin
	shell.OnChange(func(c app.Change) { origins = append(origins, c.Origin) })

	_, err = a.Navigate(ctx, "/student-dashboard")
	require.NoError(t, err)

	require.NoError(t, other.Clear(ctx))
	changed, err := local.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	require.Equal(t, "/", a.Path())
	require.Equal(t, []session.Origin{session.OriginExternal}, origins)
	require.Equal(t, navigation.SignedOutMenu, shell.Menu())
	_, unmounted := rec.last(navigation.PathStudentDashboard).lifecycle()
	require.True(t, unmounted)
}

// End to end through the real screens and the fake backend.
func TestLoginToDashboard(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, ":memory:")
	backend := testserver.New(t)
	backend.AddUser("alice", "secret", "Student")
	backend.Update(func(s *testserver.State) {
		s.StudentSubmissions = []project.StudentSubmission{{ID: 3, Title: "Rover", Status: project.StatusApproved}}
	})
	client, err := api.New(backend.URL(), store)
	require.NoError(t, err)
	toasts := notify.NewCenter()

	a := app.New(store, screen.Deps{API: client, Notifier: toasts}, nil)
	shell := app.NewShell(a, nil)
	defer shell.Close()
	defer a.Close()

	_, err = a.Navigate(ctx, "/submit")
	require.NoError(t, err)
	require.Equal(t, "/", a.Path())

	require.NoError(t, a.Action(ctx, "login", map[string]string{"username": "alice", "password": "secret"}))
	require.Equal(t, "/student-dashboard", a.Path())

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.WaitReady(waitCtx))
	view, err := a.View()
	require.NoError(t, err)
	require.Equal(t, "My Projects", view.Title)
	require.Contains(t, view.Lines, "#3 Rover [Approved] progress -")

	require.NoError(t, a.Action(ctx, "viva", map[string]string{"id": "3"}))
	require.Equal(t, "/ai-viva/3", a.Path())

	require.NoError(t, a.Logout(ctx))
	require.Equal(t, "/", a.Path())
	_, err = a.Navigate(ctx, "/student-dashboard")
	require.NoError(t, err)
	require.Equal(t, "/", a.Path())
}
