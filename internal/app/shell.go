package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
)

// Change is reported to shell hooks after every session change.
type Change struct {
	Session session.Session
	Origin  session.Origin
	Menu    []navigation.MenuEntry
}

// Shell keeps the navigation menu in step with the session.
type Shell struct {
	app    *App
	table  []navigation.MenuEntry
	logger *slog.Logger

	mu     sync.Mutex
	menu   []navigation.MenuEntry
	hooks  map[int]func(Change)
	nextID int

	unsubscribe func()
}

// NewShell subscribes to the app's session store.
func NewShell(a *App, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Shell{
		app:    a,
		table:  navigation.DefaultMenu,
		logger: logger,
		hooks:  make(map[int]func(Change)),
	}
	s.menu = navigation.VisibleMenu(a.store.Get().Role, s.table)
	s.unsubscribe = a.store.Subscribe(s.handle)
	return s
}

// Menu returns the entries visible to the current role.
func (s *Shell) Menu() []navigation.MenuEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]navigation.MenuEntry(nil), s.menu...)
}

// OnChange registers fn for session changes. The returned function removes
// it.
func (s *Shell) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.hooks[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.hooks, id)
		s.mu.Unlock()
	}
}

// Close stops following the session store.
func (s *Shell) Close() {
	s.unsubscribe()
}

func (s *Shell) handle(evt session.Event) {
	menu := navigation.VisibleMenu(evt.Session.Role, s.table)

	s.mu.Lock()
	s.menu = menu
	hooks := make([]func(Change), 0, len(s.hooks))
	for _, fn := range s.hooks {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()

	// A session cleared by another client leaves a guarded screen without
	// credentials.
	if evt.Origin == session.OriginExternal && !evt.Session.Authenticated() && s.app.Guarded() {
		if _, err := s.app.Navigate(context.Background(), navigation.PathLogin); err != nil {
			s.logger.Warn("failed to leave guarded screen", "error", err)
		}
	}

	change := Change{Session: evt.Session, Origin: evt.Origin, Menu: menu}
	for _, fn := range hooks {
		fn(change)
	}
}
