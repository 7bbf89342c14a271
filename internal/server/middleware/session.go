// Package middleware provides HTTP middleware for browser sessions.
package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// sessionIDKey is the context key for storing the session ID.
const sessionIDKey ContextKey = "sessionID"

// SessionStore is the part of the session store the middleware needs.
type SessionStore interface {
	Exists(id string) bool
	Create() string
}

// Session creates middleware that attaches a live session ID to every request.
// A browser without a cookie, or whose session expired, gets a new session and cookie.
func Session(store SessionStore, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" && store.Exists(cookie.Value) {
				id = cookie.Value
			} else {
				id = store.Create()
				log.Printf("[session] started %s", id)
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the session ID from the request context.
func GetSessionID(r *http.Request) (string, error) {
	id, ok := r.Context().Value(sessionIDKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("session ID not found in request context")
	}
	return id, nil
}

// SessionIDKey returns the context key for the session ID (for testing purposes).
func SessionIDKey() ContextKey {
	return sessionIDKey
}
