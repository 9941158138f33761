package mcp

import (
	"context"
	"log/slog"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const sessionIDKey contextKey = iota

func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// requestSessionID reads the Mcp-Session-Id header in http mode and
// _meta.session_id otherwise.
func requestSessionID(req sdkmcp.Request) (id string) {
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id = extra.Header.Get("Mcp-Session-Id"); id != "" {
			return id
		}
	}
	// Notifications may carry typed nil params.
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if params := req.GetParams(); params != nil {
		if meta := params.GetMeta(); meta != nil {
			id, _ = meta["session_id"].(string)
		}
	}
	return id
}

// sessionMiddleware stores the MCP session id in the context. All sessions
// drive the same screen, so a tool call from a different session than the
// previous one is logged.
func sessionMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	var (
		mu     sync.Mutex
		driver string
	)
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			id := requestSessionID(req)
			if id == "" {
				return next(ctx, method, req)
			}
			ctx = context.WithValue(ctx, sessionIDKey, id)

			if method == "tools/call" && logger != nil {
				mu.Lock()
				previous := driver
				driver = id
				mu.Unlock()
				if previous != "" && previous != id {
					logger.Info("screen now driven by another mcp session", "session_id", id, "previous", previous)
				}
			}
			return next(ctx, method, req)
		}
	}
}
