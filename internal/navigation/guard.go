package navigation

import "github.com/aipms/client/internal/domain/session"

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard allows guarded screens only with an access token. It hides UI and
// is not an authorization check; the server decides per request.
func Guard(sess session.Session) Decision {
	if !sess.Authenticated() {
		return Decision{Redirect: PathLogin}
	}
	return Decision{Allow: true}
}
