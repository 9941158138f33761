package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/aipms/client/internal/app"
	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/screen"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps client errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, navigation.ErrRouteNotFound):
		return &APIError{Code: "ROUTE_NOT_FOUND", Message: err.Error(), RecoveryHint: "Pick a path from the menu tool"}
	case errors.Is(err, app.ErrNoScreen):
		return &APIError{Code: "NO_SCREEN", Message: "no screen is shown", RecoveryHint: "Call navigate first"}
	case errors.Is(err, screen.ErrUnknownAction):
		return &APIError{Code: "UNKNOWN_ACTION", Message: err.Error(), RecoveryHint: "Use an action listed in the current view"}
	case errors.Is(err, screen.ErrMissingArgument):
		return &APIError{Code: "MISSING_ARGUMENT", Message: err.Error(), RecoveryHint: "Pass every argument listed for the action"}
	case errors.Is(err, project.ErrInvalidID):
		return &APIError{Code: "INVALID_ID", Message: err.Error(), RecoveryHint: "IDs are positive integers"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: "TIMEOUT", Message: "the screen did not finish loading", RecoveryHint: "Call current_view again"}
	default:
		return nil
	}
}

// toolError returns the mapped error when one exists.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
