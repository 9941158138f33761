package screen

import (
	"context"
	"errors"

	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

// Login signs a user in.
type Login struct {
	lifecycle
	deps Deps
}

// NewLogin creates the login screen.
func NewLogin(d Deps) *Login {
	s := &Login{deps: d}
	s.init()
	return s
}

func (s *Login) Mount(context.Context) { s.mountReady() }

func (s *Login) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("Login")
	v.Lines = []string{"Sign in with your username and password."}
	v.Actions = []ActionSpec{{Name: "login", Args: []string{"username", "password"}, Description: "Sign in"}}
	return v
}

func (s *Login) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	if name != "login" {
		return Result{}, unknownAction(name)
	}
	username, err := arg(args, "username")
	if err != nil {
		return Result{}, err
	}
	password, err := arg(args, "password")
	if err != nil {
		return Result{}, err
	}
	return s.login(ctx, project.Credentials{Username: username, Password: password})
}

// login writes the session only after both the token exchange and the
// profile fetch succeed.
func (s *Login) login(ctx context.Context, creds project.Credentials) (Result, error) {
	fail := func() (Result, error) {
		s.deps.toast(notify.LevelError, "Login Failed", "Invalid username or password. Try again.")
		return Result{}, nil
	}

	if err := project.Validate(creds); err != nil {
		return fail()
	}

	pair, err := s.deps.API.Login(ctx, creds)
	if err != nil {
		s.deps.logger().Info("login rejected", "username", creds.Username, "error", err)
		return fail()
	}
	me, err := s.deps.API.Me(ctx, pair.Access)
	if err != nil {
		s.deps.logger().Warn("profile fetch failed", "username", creds.Username, "error", err)
		return fail()
	}
	role, err := session.ParseRole(me.Role)
	if err != nil {
		s.deps.logger().Warn("login with unknown role", "username", creds.Username, "role", me.Role)
		return fail()
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	sess := session.Session{AccessToken: pair.Access, RefreshToken: pair.Refresh, Role: role}
	if err := s.deps.Session.Set(ctx, sess); err != nil {
		s.deps.logger().Error("storing session failed", "error", err)
		return fail()
	}
	s.deps.logger().Info("signed in", "username", creds.Username, "role", role)
	return Result{Redirect: navigation.Landing(role)}, nil
}

// Register creates a student account.
type Register struct {
	lifecycle
	deps Deps
}

// NewRegister creates the registration screen.
func NewRegister(d Deps) *Register {
	s := &Register{deps: d}
	s.init()
	return s
}

func (s *Register) Mount(context.Context) { s.mountReady() }

func (s *Register) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("Register")
	v.Lines = []string{"Create a student account."}
	v.Actions = []ActionSpec{{Name: "register", Args: []string{"username", "email", "password"}, Description: "Create the account"}}
	return v
}

const registerFailed = "Registration failed. Please check your details."

func (s *Register) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	if name != "register" {
		return Result{}, unknownAction(name)
	}
	var reg project.Registration
	var err error
	if reg.Username, err = arg(args, "username"); err != nil {
		return Result{}, err
	}
	if reg.Email, err = arg(args, "email"); err != nil {
		return Result{}, err
	}
	if reg.Password, err = arg(args, "password"); err != nil {
		return Result{}, err
	}

	if err := project.Validate(reg); err != nil {
		var verr *project.ValidationError
		msg := registerFailed
		if errors.As(err, &verr) {
			msg = verr.Error()
		}
		s.setError(msg)
		s.deps.toast(notify.LevelWarning, "Invalid Input", msg)
		return Result{}, nil
	}

	s.setError("")
	if err := s.deps.API.Register(ctx, reg); err != nil {
		s.deps.logger().Info("registration rejected", "username", reg.Username, "error", err)
		s.setError(registerFailed)
		return Result{}, nil
	}

	s.deps.toast(notify.LevelSuccess, "Registration Successful!", "Your account has been created. Please log in.")
	return Result{Redirect: navigation.PathLogin}, nil
}

func (s *Register) setError(msg string) {
	s.settle(func() { s.errMsg = msg })
}
