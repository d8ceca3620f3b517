package httpapi

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger tags the request context with the chi request id, so every
// entry logged while serving it carries the id, and logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWith(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.logger.Info(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// accessToken reads the bearer token, falling back to the session cookie.
func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// identify resolves the caller and stores the Identity in the request
// context. An expired or missing access token is renewed from the refresh
// cookie when there is one. The cookies are dropped only for an expired
// session; a token another request just rotated is left alone so the
// winner's Set-Cookie stands.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := s.resolver.Resolve(accessToken(r))

		if id.State == auth.Unauthenticated && refreshToken(r) != "" {
			pair, err := s.sessions.RefreshToken(ctx, refreshToken(r))
			if err == nil {
				s.setSessionCookies(w, pair)
				id = s.resolver.Resolve(pair.AccessToken)
			} else {
				s.logger.Debug(ctx, "session refresh failed", "error", err)
				if errors.Is(err, common.ErrRefreshTokenExpired) {
					s.clearSessionCookies(w)
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, id)))
	})
}

// requireOwnerPage applies the guard to admin HTML pages.
func (s *Server) requireOwnerPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.guard.Decide(auth.IdentityFrom(r.Context()).State)
		switch d.Action {
		case auth.Allow:
			next.ServeHTTP(w, r)
		case auth.RedirectToLogin:
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		case auth.RedirectToRoot:
			http.Redirect(w, r, "/?notice="+url.QueryEscape(d.Notice), http.StatusSeeOther)
		default:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
}

// requireOwnerAPI applies the guard to the JSON API.
func (s *Server) requireOwnerAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.guard.Decide(auth.IdentityFrom(r.Context()).State)
		switch d.Action {
		case auth.Allow:
			next.ServeHTTP(w, r)
		case auth.RedirectToLogin:
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case auth.RedirectToRoot:
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden", "notice": d.Notice})
		default:
			writeError(w, http.StatusServiceUnavailable, "session not resolved")
		}
	})
}

func (s *Server) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, s.cookie(common.AccessTokenCookieName, pair.AccessToken, s.accessTTL))
	http.SetCookie(w, s.cookie(common.RefreshTokenCookieName, pair.RefreshToken, s.refreshTTL))
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(common.AccessTokenCookieName, "", -1))
	http.SetCookie(w, s.cookie(common.RefreshTokenCookieName, "", -1))
}

// cookie scopes session cookies to /admin. A negative ttl deletes the cookie.
func (s *Server) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

// clientKey identifies the caller for sign-in throttling. RemoteAddr carries
// the proxy-reported address only when RealIP is mounted for a trusted proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
