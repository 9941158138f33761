package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// redactedTools never have their arguments logged.
var redactedTools = map[string]bool{"login": true}

// trafficLoggingMiddleware logs one debug line per call with its payloads.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := requestParams(req)
			start := time.Now()
			result, err := next(ctx, method, req)

			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", getSessionID(ctx),
				"elapsed", time.Since(start),
				"params", formatParams(params),
			}
			if call, ok := params.(*sdkmcp.CallToolParamsRaw); ok && call != nil {
				attrs = append(attrs, "tool", call.Name)
			}
			if !strings.HasPrefix(method, "notifications/") {
				attrs = append(attrs, "result", formatPayload(result))
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("mcp traffic", attrs...)
			return result, err
		}
	}
}

func requestParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

// formatParams hides the arguments of credential-carrying tool calls.
func formatParams(params any) string {
	if call, ok := params.(*sdkmcp.CallToolParamsRaw); ok && call != nil && redactedTools[call.Name] {
		return fmt.Sprintf(`{"name":%q,"arguments":"<redacted>"}`, call.Name)
	}
	return formatPayload(params)
}

func formatPayload(payload any) string {
	if payload == nil {
		return "-"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
