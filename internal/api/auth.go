package api

import (
	"context"
	"net/http"

	"github.com/aipms/client/internal/domain/project"
)

// TokenPair is the result of a credential exchange.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Profile is the signed-in user as reported by the server.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds project.Credentials) (TokenPair, error) {
	body, err := jsonBody(creds)
	if err != nil {
		return TokenPair{}, err
	}
	var out TokenPair
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/jwt/create/",
		body:        body,
		contentType: "application/json",
	}, &out)
	return out, err
}

// Me fetches the profile for accessToken. The token is passed explicitly
// because the session is not stored until the profile is known.
func (c *Client) Me(ctx context.Context, accessToken string) (Profile, error) {
	if accessToken == "" {
		return Profile{}, ErrNoSession
	}
	var out Profile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/users/me/",
		auth:   true,
		token:  accessToken,
	}, &out)
	return out, err
}

// Register creates a student account.
func (c *Client) Register(ctx context.Context, reg project.Registration) error {
	body, err := jsonBody(struct {
		project.Registration
		Role string `json:"role"`
	}{Registration: reg, Role: "Student"})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/users/",
		body:        body,
		contentType: "application/json",
	}, nil)
}
