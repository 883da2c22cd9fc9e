package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/services"
)

// SessionCookie carries the signed session token between requests.
const SessionCookie = "gestornet_session"

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *services.Session)

// sessionToken reads the token from the Authorization header or, failing
// that, from the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// restoreSession returns the caller's session or core.ErrNotLoggedIn.
func (s *Server) restoreSession(r *http.Request) (*services.Session, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, core.ErrNotLoggedIn
	}
	return s.deps.Auth.RestoreSession(r.Context(), token)
}

// withSession rejects API calls without a valid session with 401 JSON.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.restoreSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, core.ErrNotLoggedIn.Message)
			return
		}
		next(w, r.WithContext(withManager(r.Context(), sess)), sess)
	}
}

// withPageSession is withSession for HTML pages.
func (s *Server) withPageSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.restoreSession(r)
		if err != nil {
			http.Error(w, core.ErrNotLoggedIn.Message, http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withManager(r.Context(), sess)), sess)
	}
}

// withManager tags the request logger with the session's manager.
func withManager(ctx context.Context, sess *services.Session) context.Context {
	logger := log.FromContext(ctx).With(log.FieldManager, sess.ManagerName())
	return log.NewContext(ctx, logger)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token(),
		Path:     "/",
		Expires:  s.now().Add(s.sessionTTL),
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
