package session

import "time"

// Role is the platform role of the signed-in user.
type Role string

const (
	RoleNone     Role = ""
	RoleStudent  Role = "Student"
	RoleTeacher  Role = "Teacher"
	RoleHODAdmin Role = "HOD/Admin"
)

// Roles lists every role a signed-in user can have.
var Roles = []Role{RoleStudent, RoleTeacher, RoleHODAdmin}

// ParseRole converts a wire role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleHODAdmin:
		return Role(s), nil
	default:
		return RoleNone, ErrUnknownRole
	}
}

// IsStaff reports whether the role reviews submissions.
func (r Role) IsStaff() bool {
	switch r {
	case RoleTeacher, RoleHODAdmin:
		return true
	default:
		return false
	}
}

// Session is the authenticated identity of this client.
type Session struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	Role         Role   `json:"role"`
}

// Authenticated reports whether an access token is present. Token validity
// is never checked locally.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Origin identifies where a session change came from.
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginExternal Origin = "external"
)

// Event is delivered to subscribers after every session change.
type Event struct {
	Session Session
	Origin  Origin
	At      time.Time
}

// Claims are the fields read from an access token without verification.
type Claims struct {
	UserID    string    `json:"user_id,omitempty"`
	TokenType string    `json:"token_type,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token expiry has passed at now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
