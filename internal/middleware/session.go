package middleware

import (
	"net/http"

	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/session"
)

// SessionCookieName is the cookie carrying the browser session id
const SessionCookieName = "iptracker_session"

// SessionMiddleware attaches the caller's view controller to the request
// context, issuing a session cookie on first contact.
func SessionMiddleware(reg *session.Registry, secure bool, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("Session")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookieName); err == nil && session.ValidID(c.Value) {
				id = c.Value
			}

			if id == "" {
				id = session.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctrl, created := reg.GetOrCreate(id)
			if created {
				log.WithSession(id).Debug().Str("ip", ClientIP(r)).Msg("Session started")
			}

			next.ServeHTTP(w, r.WithContext(session.WithController(r.Context(), id, ctrl)))
		})
	}
}
