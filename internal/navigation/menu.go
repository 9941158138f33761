package navigation

import "github.com/aipms/client/internal/domain/session"

// MenuEntry is one navigation link and the roles that see it.
type MenuEntry struct {
	Path  string         `json:"path"`
	Label string         `json:"label"`
	Roles []session.Role `json:"roles,omitempty"`
}

// Allows reports whether role may see the entry.
func (m MenuEntry) Allows(role session.Role) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var allRoles = session.Roles

// DefaultMenu is the menu of the platform.
var DefaultMenu = []MenuEntry{
	{Path: "/student-dashboard", Label: "My Projects", Roles: []session.Role{session.RoleStudent}},
	{Path: "/teacher-dashboard", Label: "Review Submissions", Roles: []session.Role{session.RoleTeacher, session.RoleHODAdmin}},
	{Path: "/submit", Label: "New Submission", Roles: []session.Role{session.RoleStudent}},
	{Path: "/ai-chat", Label: "AI Assistant", Roles: allRoles},
	{Path: "/analytics", Label: "Analytics", Roles: []session.Role{session.RoleTeacher, session.RoleHODAdmin}},
	{Path: "/admin", Label: "Admin Panel", Roles: []session.Role{session.RoleHODAdmin}},
	{Path: "/top-projects", Label: "Alumni", Roles: allRoles},
}

// SignedOutMenu is shown when nobody is signed in.
var SignedOutMenu = []MenuEntry{
	{Path: PathLogin, Label: "Login"},
	{Path: PathRegister, Label: "Register"},
}

// VisibleMenu returns the entries of table that role may see, in table
// order. Without a role only SignedOutMenu is visible.
func VisibleMenu(role session.Role, table []MenuEntry) []MenuEntry {
	if role == session.RoleNone {
		return append([]MenuEntry(nil), SignedOutMenu...)
	}
	out := make([]MenuEntry, 0, len(table))
	for _, entry := range table {
		if entry.Allows(role) {
			out = append(out, entry)
		}
	}
	return out
}

// Landing is the screen a role lands on after login.
func Landing(role session.Role) string {
	switch {
	case role.IsStaff():
		return PathTeacherDashboard
	case role == session.RoleStudent:
		return PathStudentDashboard
	default:
		return PathLogin
	}
}
