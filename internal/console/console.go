// Package console renders the client as a line-oriented terminal session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/aipms/client/internal/app"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
	"github.com/aipms/client/internal/screen"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// readPassword reads a line without echo from a terminal.
var readPassword = term.ReadPassword

const helpText = `Commands:
  go <path>                   open a screen, for example: go /student-dashboard
  menu                        list the screens for your role
  view                        show the current screen again
  do <action> [key=value ...] run an action; quote values with spaces: prompt="how do I start?"
  login [username]            sign in (the password is not echoed)
  logout                      sign out
  whoami                      show the signed-in role and token expiry
  help                        show this help
  quit                        leave`

// Console reads commands and prints screens.
type Console struct {
	app          *app.App
	shell        *app.Shell
	toasts       *notify.Center
	logger       *slog.Logger
	readyTimeout time.Duration

	in     *bufio.Reader
	inFile *os.File

	outMu sync.Mutex
	out   io.Writer
}

// New creates a console over in and out.
func New(a *app.App, shell *app.Shell, toasts *notify.Center, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Console{
		app:          a,
		shell:        shell,
		toasts:       toasts,
		logger:       logger,
		readyTimeout: 15 * time.Second,
		in:           bufio.NewReader(in),
		out:          out,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.inFile = f
	}
	return c
}

// Run shows the start screen and processes commands until quit, EOF or
// ctx is done.
func (c *Console) Run(ctx context.Context) error {
	remove := c.shell.OnChange(c.sessionChanged)
	defer remove()

	start := navigation.PathLogin
	if c.app.Store().Get().Authenticated() {
		start = navigation.Landing(c.app.Store().Get().Role)
	}
	if err := c.Execute(ctx, "go "+start); err != nil {
		return err
	}
	c.printf("Type help for commands.\n")

	for {
		c.printf("> ")
		line, err := c.in.ReadString('\n')
		if line != "" {
			if execErr := c.Execute(ctx, line); errors.Is(execErr, ErrQuit) {
				return nil
			} else if execErr != nil {
				c.printf("error: %v\n", execErr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Execute runs one command line. User-level failures are printed as
// notifications; the returned error is for malformed commands.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields, err := splitArgs(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	defer c.printToasts()

	cmd, rest := fields[0], fields[1:]
	switch cmd {
	case "go", "open":
		if len(rest) != 1 {
			return errors.New("usage: go <path>")
		}
		if _, err := c.app.Navigate(ctx, rest[0]); err != nil {
			return err
		}
		return c.showView(ctx)
	case "menu":
		c.printMenu(c.shell.Menu())
		return nil
	case "view":
		return c.showView(ctx)
	case "do":
		if len(rest) == 0 {
			return errors.New("usage: do <action> [key=value ...]")
		}
		args, err := parseKeyValues(rest[1:])
		if err != nil {
			return err
		}
		if err := c.app.Action(ctx, rest[0], args); err != nil {
			return err
		}
		return c.showView(ctx)
	case "login":
		return c.login(ctx, rest)
	case "logout":
		if err := c.app.Logout(ctx); err != nil {
			return err
		}
		return c.showView(ctx)
	case "whoami":
		c.whoami()
		return nil
	case "help", "?":
		c.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
}

func (c *Console) login(ctx context.Context, rest []string) error {
	var username string
	if len(rest) > 0 {
		username = rest[0]
	} else {
		c.printf("username: ")
		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	c.printf("password: ")
	password, err := c.readSecret()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if c.app.Path() != navigation.PathLogin {
		if _, err := c.app.Navigate(ctx, navigation.PathLogin); err != nil {
			return err
		}
	}
	if err := c.app.Action(ctx, "login", map[string]string{"username": username, "password": password}); err != nil {
		return err
	}
	return c.showView(ctx)
}

func (c *Console) readSecret() (string, error) {
	if c.inFile != nil {
		b, err := readPassword(int(c.inFile.Fd()))
		c.printf("\n")
		return string(b), err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Console) whoami() {
	store := c.app.Store()
	sess := store.Get()
	if !sess.Authenticated() {
		c.printf("not signed in\n")
		return
	}
	c.printf("role: %s\n", sess.Role)
	claims, err := store.Claims()
	if err != nil {
		return
	}
	if claims.UserID != "" {
		c.printf("user id: %s\n", claims.UserID)
	}
	if !claims.ExpiresAt.IsZero() {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired"
		}
		c.printf("token expires: %s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC1123), state)
	}
}

func (c *Console) showView(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.readyTimeout)
	defer cancel()
	if err := c.app.WaitReady(waitCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	view, err := c.app.View()
	if err != nil {
		return err
	}
	c.printView(view)
	return nil
}

func (c *Console) sessionChanged(change app.Change) {
	if change.Origin == session.OriginExternal {
		if change.Session.Authenticated() {
			c.printf("\n* session changed in another window, role %s\n", change.Session.Role)
		} else {
			c.printf("\n* signed out in another window\n")
		}
	}
	c.printMenu(change.Menu)
}

func (c *Console) printView(v screen.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s (%s)", v.Title, v.Path)
	if v.Status == screen.StatusLoading {
		b.WriteString(" [loading]")
	}
	b.WriteString("\n")
	if v.Error != "" {
		fmt.Fprintf(&b, "! %s\n", v.Error)
	}
	for _, line := range v.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(v.Actions) > 0 {
		b.WriteString("actions:\n")
		for _, a := range v.Actions {
			sig := a.Name
			for _, arg := range a.Args {
				sig += " " + arg + "=..."
			}
			for _, arg := range a.Optional {
				sig += " [" + arg + "=...]"
			}
			fmt.Fprintf(&b, "  do %s  %s\n", sig, a.Description)
		}
	}
	c.printf("%s", b.String())
}

func (c *Console) printMenu(entries []navigation.MenuEntry) {
	var b strings.Builder
	b.WriteString("menu:")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s %s", e.Label, e.Path)
	}
	b.WriteString("\n")
	c.printf("%s", b.String())
}

func (c *Console) printToasts() {
	if c.toasts == nil {
		return
	}
	for _, t := range c.toasts.Drain() {
		c.printf("%s\n", t.String())
	}
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// splitArgs splits a command line on spaces. Double quotes group words and
// a backslash escapes the next character inside quotes.
func splitArgs(line string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		started bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}

func parseKeyValues(fields []string) (map[string]string, error) {
	args := make(map[string]string, len(fields))
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", f)
		}
		args[key] = value
	}
	return args, nil
}
