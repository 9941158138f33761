package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/domain/viva"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

var (
	// ErrUnknownAction indicates an action the screen does not offer.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingArgument indicates a required action argument was not given.
	ErrMissingArgument = errors.New("missing argument")
)

// Status is the load state of a screen.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ActionSpec describes an action a screen accepts.
type ActionSpec struct {
	Name        string   `json:"name"`
	Args        []string `json:"args,omitempty"`
	Optional    []string `json:"optional,omitempty"`
	Description string   `json:"description"`
}

// View is what a renderer shows for a screen.
type View struct {
	Path    string       `json:"path"`
	Title   string       `json:"title"`
	Status  Status       `json:"status"`
	Error   string       `json:"error,omitempty"`
	Lines   []string     `json:"lines,omitempty"`
	Data    any          `json:"data,omitempty"`
	Actions []ActionSpec `json:"actions,omitempty"`
}

// Result is the outcome of an action. A non-empty Redirect asks the
// dispatcher to navigate.
type Result struct {
	Redirect string `json:"redirect,omitempty"`
}

// Screen is a mounted view with its own state.
type Screen interface {
	// Mount starts the initial loads. ctx is cancelled when the screen is
	// navigated away from.
	Mount(ctx context.Context)
	// Unmount discards any result that arrives afterwards.
	Unmount()
	// Ready is closed once the initial load has settled.
	Ready() <-chan struct{}
	View() View
	Action(ctx context.Context, name string, args map[string]string) (Result, error)
}

// Backend is the API surface used by screens.
type Backend interface {
	viva.API

	Login(ctx context.Context, creds project.Credentials) (api.TokenPair, error)
	Me(ctx context.Context, accessToken string) (api.Profile, error)
	Register(ctx context.Context, reg project.Registration) error
	StudentSubmissions(ctx context.Context) ([]project.StudentSubmission, error)
	SubmitProject(ctx context.Context, sub project.NewSubmission) error
	UpdateProgress(ctx context.Context, submissionID int64, update project.ProgressUpdate) error
	TeacherSubmissions(ctx context.Context, view api.TeacherView) ([]project.TeacherSubmission, error)
	ReviewSubmission(ctx context.Context, submissionID int64, decision project.Status) error
	ApprovedProjects(ctx context.Context) ([]project.ApprovedProject, error)
	AllProjects(ctx context.Context) ([]project.Project, error)
	ChangeProjectStatus(ctx context.Context, projectID int64, status project.Status) error
	Analytics(ctx context.Context) (project.Analytics, error)
	AdminDashboard(ctx context.Context) (project.AdminDashboard, error)
	AlumniProjects(ctx context.Context) ([]project.AlumniProject, error)
	TopAlumniProjects(ctx context.Context) ([]project.TopProject, error)
	Leaderboard(ctx context.Context) ([]project.User, error)
	Chat(ctx context.Context, prompt string) (string, error)
}

// SessionStore is the session access screens need.
type SessionStore interface {
	Get() session.Session
	Set(ctx context.Context, sess session.Session) error
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	API      Backend
	Session  SessionStore
	Notifier notify.Notifier
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func (d Deps) toast(level notify.Level, title, description string) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(notify.Toast{Level: level, Title: title, Description: description})
}

// Factory builds a screen for a matched route.
type Factory func(d Deps, params navigation.Params) Screen

// Factories maps every route pattern to its screen.
func Factories() map[string]Factory {
	return map[string]Factory{
		navigation.PathLogin:                   func(d Deps, _ navigation.Params) Screen { return NewLogin(d) },
		navigation.PathRegister:                func(d Deps, _ navigation.Params) Screen { return NewRegister(d) },
		navigation.PathStudentDashboard:        func(d Deps, _ navigation.Params) Screen { return NewStudentDashboard(d) },
		navigation.PathTeacherDashboard:        func(d Deps, _ navigation.Params) Screen { return NewTeacherDashboard(d) },
		navigation.PathSubmit:                  func(d Deps, _ navigation.Params) Screen { return NewProjectSubmission(d) },
		navigation.PathAIChat:                  func(d Deps, _ navigation.Params) Screen { return NewAIChatbot(d) },
		navigation.PathAIViva:                  func(d Deps, p navigation.Params) Screen { return NewAIViva(d, p["projectId"]) },
		navigation.PathAIVivaProject:           func(d Deps, p navigation.Params) Screen { return NewAIViva(d, p["projectId"]) },
		navigation.PathArchive:                 func(d Deps, _ navigation.Params) Screen { return NewProjectArchiving(d) },
		navigation.PathAnalytics:               func(d Deps, _ navigation.Params) Screen { return NewAnalyticsDashboard(d) },
		navigation.PathAlumni:                  func(d Deps, _ navigation.Params) Screen { return NewAlumniPortal(d) },
		navigation.PathAdmin:                   func(d Deps, _ navigation.Params) Screen { return NewAdminDashboard(d) },
		navigation.PathTopProjects:             func(d Deps, _ navigation.Params) Screen { return NewTopAlumniProjects(d) },
		navigation.PathTeacherApprovedProjects: func(d Deps, _ navigation.Params) Screen { return NewTeacherApprovedProjects(d) },
		navigation.PathLeaderboard:             func(d Deps, _ navigation.Params) Screen { return NewLeaderboard(d) },
	}
}

// lifecycle is embedded by every screen. mu guards the lifecycle fields
// and the screen's own state.
type lifecycle struct {
	mu      sync.Mutex
	mounted bool
	status  Status
	errMsg  string

	ready     chan struct{}
	readyOnce sync.Once
}

func (l *lifecycle) init() {
	l.status = StatusLoading
	l.ready = make(chan struct{})
}

func (l *lifecycle) mount() {
	l.mu.Lock()
	l.mounted = true
	l.mu.Unlock()
}

// mountReady mounts a screen that has nothing to load.
func (l *lifecycle) mountReady() {
	l.mu.Lock()
	l.mounted = true
	l.status = StatusReady
	l.mu.Unlock()
	l.markReady()
}

func (l *lifecycle) Unmount() {
	l.mu.Lock()
	l.mounted = false
	l.mu.Unlock()
	l.markReady()
}

func (l *lifecycle) Ready() <-chan struct{} {
	return l.ready
}

func (l *lifecycle) markReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

// settle runs fn under the lock if the screen is still mounted.
func (l *lifecycle) settle(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return false
	}
	fn()
	return true
}

func (l *lifecycle) base(title string) View {
	return View{Title: title, Status: l.status, Error: l.errMsg}
}

// load fetches in the background and applies the result if the screen is
// still mounted. Failures show failMsg.
func load[T any](ctx context.Context, l *lifecycle, d Deps, what string, fetch func(context.Context) (T, error), failMsg string, apply func(T)) {
	go func() {
		defer l.markReady()
		refetch(ctx, l, d, what, fetch, failMsg, apply)
	}()
}

// refetch is the synchronous form of load.
func refetch[T any](ctx context.Context, l *lifecycle, d Deps, what string, fetch func(context.Context) (T, error), failMsg string, apply func(T)) bool {
	l.settle(func() {
		l.status = StatusLoading
		l.errMsg = ""
	})

	v, err := fetch(ctx)
	ok := false
	l.settle(func() {
		if err != nil {
			l.status = StatusError
			l.errMsg = failMsg
			return
		}
		apply(v)
		l.status = StatusReady
		ok = true
	})
	if err != nil && ctx.Err() == nil {
		d.logFailure(ctx, slog.LevelWarn, "screen load failed", err, "load", what)
	}
	return ok
}

// logFailure logs a failed backend call with its HTTP status. Rejected
// credentials are flagged since the only remedy is signing in again.
func (d Deps) logFailure(ctx context.Context, level slog.Level, msg string, err error, attrs ...any) {
	attrs = append(attrs, "status", api.StatusCode(err))
	var serr *api.StatusError
	if errors.As(err, &serr) && serr.Unauthorized() {
		attrs = append(attrs, "credentials_rejected", true)
	}
	attrs = append(attrs, "error", err)
	d.logger().Log(ctx, level, msg, attrs...)
}

func arg(args map[string]string, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return v, nil
}

func idArg(args map[string]string) (int64, error) {
	raw, err := arg(args, "id")
	if err != nil {
		return 0, err
	}
	return project.ParseID(raw)
}

func unknownAction(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownAction, name)
}

// sessionGone reports whether err means there is no session to act with.
func sessionGone(err error) bool {
	return errors.Is(err, api.ErrNoSession)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
