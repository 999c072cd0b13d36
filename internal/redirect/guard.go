package redirect

import (
	"strings"

	"codepair/internal/model"
)

// SessionReader is the read-only slice of the session manager the guard needs.
type SessionReader interface {
	Session() model.Session
}

// Guard maps a requested client route to the route that should actually
// render, based on authentication state. Mirrors the SPA's routing rules:
// "/" and "/editor/{roomId}" require a user, "/login" bounces authenticated
// visitors home, anything unknown falls through by auth state.
type Guard struct {
	sessions SessionReader
}

func NewGuard(sessions SessionReader) *Guard {
	return &Guard{sessions: sessions}
}

func (g *Guard) Resolve(path string) string {
	authed := g.sessions.Session().Authenticated()

	switch {
	case path == "/login":
		if authed {
			return "/"
		}
		return "/login"
	case path == "/auth/redirect":
		return path
	case path == "/" || strings.HasPrefix(path, "/editor/"):
		if authed {
			return path
		}
		return "/login"
	default:
		if authed {
			return "/"
		}
		return "/login"
	}
}
