package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/screen"
)

var (
	// ErrNoScreen indicates that nothing has been navigated to yet.
	ErrNoScreen = errors.New("no screen mounted")
	// ErrTooManyRedirects indicates a redirect chain that does not settle.
	ErrTooManyRedirects = errors.New("too many redirects")
)

const maxRedirects = 4

// App dispatches paths to screens. At most one screen is mounted; it owns
// a lifecycle context that is cancelled when the screen is replaced.
type App struct {
	store     *session.Store
	deps      screen.Deps
	routes    []navigation.Route
	factories map[string]screen.Factory
	logger    *slog.Logger
	root      context.Context

	// navMu serializes navigations; mu guards the fields below.
	navMu   sync.Mutex
	mu      sync.Mutex
	path    string
	route   navigation.Route
	current screen.Screen
	cancel  context.CancelFunc
	life    context.Context
}

// Option configures an App.
type Option func(*App)

// WithFactories replaces the screen constructors.
func WithFactories(factories map[string]screen.Factory) Option {
	return func(a *App) { a.factories = factories }
}

// WithRoot sets the parent of every screen lifecycle context.
func WithRoot(ctx context.Context) Option {
	return func(a *App) { a.root = ctx }
}

// New creates an App with nothing mounted.
func New(store *session.Store, deps screen.Deps, logger *slog.Logger, opts ...Option) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Session == nil {
		deps.Session = store
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	a := &App{
		store:     store,
		deps:      deps,
		routes:    navigation.Routes,
		factories: screen.Factories(),
		logger:    logger,
		root:      context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the session store.
func (a *App) Store() *session.Store {
	return a.store
}

// Navigate shows the screen for path and returns the path actually shown.
// Guarded routes redirect to the login screen when signed out; the guarded
// screen is never built in that case.
func (a *App) Navigate(ctx context.Context, path string) (string, error) {
	a.navMu.Lock()
	defer a.navMu.Unlock()

	for hop := 0; hop < maxRedirects; hop++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		route, params, err := navigation.Match(a.routes, path)
		if err != nil {
			return "", err
		}
		if !route.Public {
			if d := navigation.Guard(a.store.Get()); !d.Allow {
				a.logger.Debug("route guarded", "path", path, "redirect", d.Redirect)
				path = d.Redirect
				continue
			}
		}

		build, ok := a.factories[route.Pattern]
		if !ok {
			return "", fmt.Errorf("%w: no screen for %s", navigation.ErrRouteNotFound, route.Pattern)
		}
		clean := navigation.Clean(path)
		a.swap(clean, route, build(a.deps, params))
		return clean, nil
	}
	return "", ErrTooManyRedirects
}

// swap unmounts the current screen and mounts next.
func (a *App) swap(path string, route navigation.Route, next screen.Screen) {
	life, cancel := context.WithCancel(a.root)

	a.mu.Lock()
	prev, prevCancel := a.current, a.cancel
	a.path, a.route, a.current = path, route, next
	a.life, a.cancel = life, cancel
	a.mu.Unlock()

	if prev != nil {
		prev.Unmount()
		prevCancel()
	}
	a.logger.Debug("screen mounted", "path", path, "route", route.Pattern)
	next.Mount(life)
}

// Path returns the path of the mounted screen.
func (a *App) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// Guarded reports whether the mounted screen requires a session.
func (a *App) Guarded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && !a.route.Public
}

// Screen returns the mounted screen.
func (a *App) Screen() (screen.Screen, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, ErrNoScreen
	}
	return a.current, nil
}

// View renders the mounted screen.
func (a *App) View() (screen.View, error) {
	s, err := a.Screen()
	if err != nil {
		return screen.View{}, err
	}
	v := s.View()
	v.Path = a.Path()
	return v, nil
}

// WaitReady blocks until the mounted screen finished its initial load or
// ctx is done.
func (a *App) WaitReady(ctx context.Context) error {
	s, err := a.Screen()
	if err != nil {
		return err
	}
	select {
	case <-s.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Action runs an action on the mounted screen and follows its redirect.
// The action is cancelled when ctx ends or the screen is unmounted.
func (a *App) Action(ctx context.Context, name string, args map[string]string) error {
	a.mu.Lock()
	s, life := a.current, a.life
	a.mu.Unlock()
	if s == nil {
		return ErrNoScreen
	}

	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(life, cancel)
	defer stop()

	res, err := s.Action(actx, name, args)
	if err != nil {
		return err
	}
	if res.Redirect == "" {
		return nil
	}

	a.mu.Lock()
	still := a.current == s
	a.mu.Unlock()
	if !still {
		a.logger.Debug("dropping redirect from unmounted screen", "redirect", res.Redirect)
		return nil
	}
	_, err = a.Navigate(ctx, res.Redirect)
	return err
}

// Logout clears the session and returns to the login screen.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	_, err := a.Navigate(ctx, navigation.PathLogin)
	return err
}

// Close unmounts the current screen.
func (a *App) Close() {
	a.mu.Lock()
	s, cancel := a.current, a.cancel
	a.current, a.cancel, a.life = nil, nil, nil
	a.path, a.route = "", navigation.Route{}
	a.mu.Unlock()

	if s != nil {
		s.Unmount()
		cancel()
	}
}
