package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aipms/client/internal/app"
	"github.com/aipms/client/internal/navigation"
)

type tools struct {
	cfg Config
}

func registerTools(server *sdkmcp.Server, t *tools) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "navigate",
		Description: "Open the screen at path and return it once loaded. Guarded screens redirect to the login screen when signed out.",
	}, t.navigate)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "current_view",
		Description: "Return the current screen and pending notifications",
	}, t.currentView)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "menu",
		Description: "List the navigation entries visible to the signed-in role",
	}, t.menu)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "perform_action",
		Description: "Run an action of the current screen with named arguments",
	}, t.performAction)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "login",
		Description: "Sign in and land on the role dashboard",
	}, t.login)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "logout",
		Description: "Sign out and return to the login screen",
	}, t.logout)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "session_status",
		Description: "Report whether a user is signed in, the role and the token expiry",
	}, t.sessionStatus)
}

func (t *tools) navigate(ctx context.Context, _ *sdkmcp.CallToolRequest, in NavigateParams) (*sdkmcp.CallToolResult, any, error) {
	if in.Path == "" {
		return nil, nil, &APIError{Code: "MISSING_ARGUMENT", Message: "path is required"}
	}
	if _, err := t.cfg.App.Navigate(ctx, in.Path); err != nil {
		return nil, nil, toolError(err)
	}
	return t.screenResult(ctx)
}

func (t *tools) currentView(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	return t.screenResult(ctx)
}

func (t *tools) menu(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	return jsonResult(MenuResult{
		Role:  string(t.cfg.App.Store().Get().Role),
		Items: t.cfg.Shell.Menu(),
	})
}

func (t *tools) performAction(ctx context.Context, _ *sdkmcp.CallToolRequest, in PerformActionParams) (*sdkmcp.CallToolResult, any, error) {
	if in.Action == "" {
		return nil, nil, &APIError{Code: "MISSING_ARGUMENT", Message: "action is required"}
	}
	if err := t.cfg.App.Action(ctx, in.Action, in.Args); err != nil {
		return nil, nil, toolError(err)
	}
	return t.screenResult(ctx)
}

func (t *tools) login(ctx context.Context, _ *sdkmcp.CallToolRequest, in LoginParams) (*sdkmcp.CallToolResult, any, error) {
	if t.cfg.App.Path() != navigation.PathLogin {
		if _, err := t.cfg.App.Navigate(ctx, navigation.PathLogin); err != nil {
			return nil, nil, toolError(err)
		}
	}
	err := t.cfg.App.Action(ctx, "login", map[string]string{"username": in.Username, "password": in.Password})
	if err != nil {
		return nil, nil, toolError(err)
	}
	return t.screenResult(ctx)
}

func (t *tools) logout(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.cfg.App.Logout(ctx); err != nil {
		return nil, nil, toolError(err)
	}
	return t.screenResult(ctx)
}

func (t *tools) sessionStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	store := t.cfg.App.Store()
	sess := store.Get()
	status := SessionStatus{
		Authenticated: sess.Authenticated(),
		Role:          string(sess.Role),
		Path:          t.cfg.App.Path(),
		Menu:          t.cfg.Shell.Menu(),
	}
	if t.cfg.Toasts != nil {
		status.PendingToasts = t.cfg.Toasts.Pending()
	}
	if sess.Authenticated() {
		claims, err := store.Claims()
		if err != nil {
			t.cfg.Logger.Debug("access token is not a readable JWT", "error", err)
		} else {
			status.UserID = claims.UserID
			if !claims.ExpiresAt.IsZero() {
				exp := claims.ExpiresAt
				status.ExpiresAt = &exp
				status.Expired = claims.Expired(time.Now())
			}
		}
	}
	return jsonResult(status)
}

// screenResult waits for the current screen to settle and renders it with
// the pending notifications.
func (t *tools) screenResult(ctx context.Context) (*sdkmcp.CallToolResult, any, error) {
	out := ScreenResult{Path: t.cfg.App.Path()}

	waitCtx, cancel := context.WithTimeout(ctx, t.cfg.ReadyTimeout)
	defer cancel()
	err := t.cfg.App.WaitReady(waitCtx)
	switch {
	case errors.Is(err, app.ErrNoScreen):
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		t.cfg.Logger.Debug("screen still loading", "path", out.Path)
	case err != nil:
		return nil, nil, toolError(err)
	}

	if view, err := t.cfg.App.View(); err == nil {
		out.View = &view
		out.Path = view.Path
	}
	if t.cfg.Toasts != nil {
		out.Toasts = t.cfg.Toasts.Drain()
	}
	return jsonResult(out)
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
