package navigation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRouteNotFound indicates a path with no matching route.
var ErrRouteNotFound = errors.New("route not found")

// Route paths.
const (
	PathLogin                   = "/"
	PathRegister                = "/register"
	PathStudentDashboard        = "/student-dashboard"
	PathTeacherDashboard        = "/teacher-dashboard"
	PathSubmit                  = "/submit"
	PathAIChat                  = "/ai-chat"
	PathAIViva                  = "/ai-viva"
	PathAIVivaProject           = "/ai-viva/:projectId"
	PathArchive                 = "/archive"
	PathAnalytics               = "/analytics"
	PathAlumni                  = "/alumni"
	PathAdmin                   = "/admin"
	PathTopProjects             = "/top-projects"
	PathTeacherApprovedProjects = "/teacher/approved-projects"
	PathLeaderboard             = "/leaderboard"
)

// Route is an entry of the route table.
type Route struct {
	Pattern string
	Public  bool
}

// Routes is the route table of the platform.
var Routes = []Route{
	{Pattern: PathLogin, Public: true},
	{Pattern: PathRegister, Public: true},
	{Pattern: PathStudentDashboard},
	{Pattern: PathTeacherDashboard},
	{Pattern: PathSubmit},
	{Pattern: PathAIChat},
	{Pattern: PathAIViva},
	{Pattern: PathAIVivaProject},
	{Pattern: PathArchive},
	{Pattern: PathAnalytics},
	{Pattern: PathAlumni},
	{Pattern: PathAdmin},
	{Pattern: PathTopProjects},
	{Pattern: PathTeacherApprovedProjects},
	{Pattern: PathLeaderboard},
}

// Params are the values of a route's ":name" segments.
type Params map[string]string

// Clean strips the query and fragment and any trailing slash.
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Match finds the route for path.
func Match(routes []Route, path string) (Route, Params, error) {
	path = Clean(path)
	segments := split(path)

	for _, route := range routes {
		if params, ok := matchPattern(split(route.Pattern), segments); ok {
			return route, params, nil
		}
	}
	return Route{}, nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
}

// Build fills the ":name" segments of pattern.
func Build(pattern string, params Params) string {
	parts := split(pattern)
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = params[name]
		}
	}
	return "/" + strings.Join(parts, "/")
}

func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchPattern(pattern, segments []string) (Params, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := Params{}
	for i, part := range pattern {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if segments[i] == "" {
				return nil, false
			}
			params[name] = segments[i]
			continue
		}
		if part != segments[i] {
			return nil, false
		}
	}
	return params, true
}
