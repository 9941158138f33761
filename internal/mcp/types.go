package mcp

import (
	"time"

	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
	"github.com/aipms/client/internal/screen"
)

type NavigateParams struct {
	Path string `json:"path" jsonschema:"route path, for example /student-dashboard or /ai-viva/12"`
}

type PerformActionParams struct {
	Action string            `json:"action" jsonschema:"action name as listed in the current view"`
	Args   map[string]string `json:"args,omitempty" jsonschema:"action arguments by name"`
}

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type EmptyParams struct{}

// ScreenResult is returned by every tool that touches a screen.
type ScreenResult struct {
	Path   string         `json:"path"`
	View   *screen.View   `json:"view,omitempty"`
	Toasts []notify.Toast `json:"toasts,omitempty"`
}

type MenuResult struct {
	Role  string                 `json:"role,omitempty"`
	Items []navigation.MenuEntry `json:"items"`
}

type SessionStatus struct {
	Authenticated bool                   `json:"authenticated"`
	Role          string                 `json:"role,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	ExpiresAt     *time.Time             `json:"expires_at,omitempty"`
	Expired       bool                   `json:"expired,omitempty"`
	Path          string                 `json:"path,omitempty"`
	PendingToasts int                    `json:"pending_toasts"`
	Menu          []navigation.MenuEntry `json:"menu"`
}
