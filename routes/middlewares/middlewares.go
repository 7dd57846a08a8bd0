package middlewares

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/httpx"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/metrics"
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/session"
)

type contextKey struct{ name string }

var sessionKey = &contextKey{"session"}

// Session returns the session loaded by Authenticate.
func Session(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// Authenticate requires a valid token, from the Authorization header or
// the jwt cookie, naming a live session.
func Authenticate(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(jwtauth.Verifier(app.Tokens), loadSession(app)).Handler(next)
	}
}

func loadSession(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.token")
				return
			}

			sid, _ := claims[session.ClaimSession].(string)
			sess, err := app.Sessions.Get(sid)
			if err != nil {
				httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.session")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin lets through only sessions of admin users. It must follow Authenticate.
func Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := Session(r.Context())
		if sess == nil || sess.User.Role != model.RoleAdmin {
			httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "auth.admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Instrument logs every request and feeds the request metrics.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snoop := httpsnoop.CaptureMetrics(next, w, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			if m != nil {
				m.ObserveRequest(r.Method, route, snoop.Code, snoop.Duration)
			}

			level := log.InfoLevel
			if snoop.Code >= http.StatusInternalServerError {
				level = log.WarnLevel
			}
			log.LogFieldsf(level, map[string]any{
				"request_id": middleware.GetReqID(r.Context()),
				"status":     snoop.Code,
				"bytes":      snoop.Written,
				"duration":   snoop.Duration.String(),
				"remote":     r.RemoteAddr,
			}, "%s %s", r.Method, r.URL.Path)
		})
	}
}
