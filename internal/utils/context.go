package utils

import (
	"context"
	"net/http"
)

type contextKey string

const (
	SessionIDKey contextKey = "viewer_session_id"
	CSRFTokenKey contextKey = "csrf_token"
)

// WithSession stores the viewer session id and its CSRF token in ctx.
func WithSession(ctx context.Context, sessionID, csrfToken string) context.Context {
	ctx = context.WithValue(ctx, SessionIDKey, sessionID)
	return context.WithValue(ctx, CSRFTokenKey, csrfToken)
}

// GetSessionID extracts the viewer session id from request context
func GetSessionID(r *http.Request) (string, bool) {
	return SessionIDFromContext(r.Context())
}

// SessionIDFromContext is GetSessionID for code that only sees the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok && id != ""
}

// GetCSRFToken extracts CSRF token from request context
func GetCSRFToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(CSRFTokenKey).(string)
	return token, ok && token != ""
}
