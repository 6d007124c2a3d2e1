package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/identity"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionHeader    = "X-Session-ID"
	SessionCookie    = "session_id"
	sessionCookieAge = 30 * 24 * time.Hour
	maxSessionIDLen  = 128
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	authSessionKey
)

// AuthSessions maps a storefront session to its signed-in user.
type AuthSessions interface {
	Save(ctx context.Context, sessionID string, sess domain.Session) error
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionMiddleware resolves the storefront session id from the X-Session-ID
// header or the session_id cookie, issuing a new cookie when neither is set.
func SessionMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sid == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					sid = c.Value
				}
			}
			if sid == "" || len(sid) > maxSessionIDLen {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionCookieAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, sid)

			ctx := context.WithValue(r.Context(), sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware attaches the signed-in user of the session, if any. Lookup
// failures leave the request anonymous.
func AuthMiddleware(sessions AuthSessions, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), getSessionID(r.Context()))
			switch {
			case err == nil:
				r = r.WithContext(context.WithValue(r.Context(), authSessionKey, sess))
			case !errors.Is(err, identity.ErrNoSession):
				logger.WithTrace(r.Context(), log).Warn("auth session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := getAuthSession(r.Context()); !ok {
			respondError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only users whose email is in admins.
func RequireAdmin(admins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		allowed[strings.ToLower(a)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := getAuthSession(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "sign in required")
				return
			}
			if _, ok := allowed[strings.ToLower(sess.User.Email)]; !ok {
				respondError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request with its trace ids.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.WithTrace(r.Context(), log).Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func getSessionID(ctx context.Context) string {
	if sid, ok := ctx.Value(sessionIDKey).(string); ok {
		return sid
	}
	return ""
}

func getAuthSession(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(authSessionKey).(domain.Session)
	return sess, ok
}

func getUserID(ctx context.Context) string {
	if sess, ok := getAuthSession(ctx); ok {
		return sess.User.ID
	}
	return ""
}
