package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aipms/client/internal/domain/project"
)

// ErrNoSession is returned for bearer endpoints when no access token is
// stored. No request is sent.
var ErrNoSession = errors.New("no session")

// TransportError is a request that got no HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a 4xx or 5xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unauthorized reports whether the server rejected the credentials.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// SimilarityConflict is the 409 returned when a submission is too similar
// to an existing project. Fields are passed through unchanged.
type SimilarityConflict struct {
	Detail         string                  `json:"detail"`
	Suggestions    string                  `json:"suggestions,omitempty"`
	SimilarProject *project.SimilarProject `json:"similar_project,omitempty"`
}

func (e *SimilarityConflict) Error() string {
	if e.Detail == "" {
		return "similarity conflict"
	}
	return "similarity conflict: " + e.Detail
}

// StatusCode extracts the HTTP status from err, or 0 when there is none.
func StatusCode(err error) int {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode
	}
	var conflict *SimilarityConflict
	if errors.As(err, &conflict) {
		return http.StatusConflict
	}
	return 0
}
