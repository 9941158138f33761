package api

import (
	"context"
	"net/http"

	"github.com/aipms/client/internal/domain/project"
)

// Analytics fetches the platform statistics.
func (c *Client) Analytics(ctx context.Context) (project.Analytics, error) {
	var out project.Analytics
	err := c.do(ctx, request{method: http.MethodGet, path: "/analytics/", auth: true}, &out)
	return out, err
}

// AdminDashboard fetches all users and groups.
func (c *Client) AdminDashboard(ctx context.Context) (project.AdminDashboard, error) {
	var out project.AdminDashboard
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/dashboard/", auth: true}, &out)
	return out, err
}

// AlumniProjects lists the signed-in student's finished projects.
func (c *Client) AlumniProjects(ctx context.Context) ([]project.AlumniProject, error) {
	var out []project.AlumniProject
	err := c.do(ctx, request{method: http.MethodGet, path: "/alumni/my-projects/", auth: true}, &out)
	return out, err
}

// TopAlumniProjects lists the public showcase. No token is sent.
func (c *Client) TopAlumniProjects(ctx context.Context) ([]project.TopProject, error) {
	var out []project.TopProject
	err := c.do(ctx, request{method: http.MethodGet, path: "/alumni/top-projects/"}, &out)
	return out, err
}

// Leaderboard lists the users with the highest innovation totals.
func (c *Client) Leaderboard(ctx context.Context) ([]project.User, error) {
	var out []project.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/leaderboard/", auth: true}, &out)
	return out, err
}
