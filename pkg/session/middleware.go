package session

import (
	"context"
	"net/http"
)

// ctxKey is the type for context keys used in this package.
type ctxKey int

const sessionKey ctxKey = 0

// FromContext retrieves the session attached by [Middleware].
// Returns nil if the request did not pass through the middleware.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

// Middleware loads the session identified by the request's session cookie,
// creating a fresh session when none exists, and persists it after the
// handler runs. The session is available to handlers via [FromContext].
//
// The middleware has the standard net/http shape and works with any router:
//
//	r := chi.NewRouter()
//	r.Use(session.Middleware(store))
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *Session
			if cookie, err := r.Cookie(CookieName); err == nil {
				sess, _ = store.Get(ctx, cookie.Value)
			}

			isNew := sess == nil
			if isNew {
				var err error
				sess, err = New(DefaultTTL)
				if err != nil {
					http.Error(w, "cannot create session", http.StatusInternalServerError)
					return
				}
			}

			if isNew {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
				})
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))

			// Persist whatever the handler wrote into the session.
			_ = store.Set(ctx, sess)
		})
	}
}
