package transport

import (
	"encoding/json"
	"net/http"
)

// Error codes the router answers with before a request reaches the MCP
// handler.
const (
	CodeNotFound     = -32601
	CodeUnauthorized = -32001
)

// ErrorResponse is a JSON-RPC 2.0 response that carries only an error. The id
// is always null since the router never parses the request body.
type ErrorResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Error   ErrorDetail `json:"error"`
	ID      any         `json:"id"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		JSONRPC: "2.0",
		Error:   ErrorDetail{Code: code, Message: message},
	})
}
