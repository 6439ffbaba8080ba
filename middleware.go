package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"staffDirectoryViewer/internal/utils"
)

const (
	sessionCookieName = "viewer-session"
	sessionIDValue    = "session_id"
	csrfTokenValue    = "csrf_token"
)

func (app *App) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapper, r)

		utils.AppLogger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
			"status_code": wrapper.statusCode,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).Info("HTTP request completed")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (app *App) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.AppLogger.WithFields(map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"panic":       fmt.Sprintf("%v", err),
					"remote_addr": r.RemoteAddr,
				}).Error("Panic recovered in HTTP handler")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware gives every browser a viewer session id and a CSRF token,
// both kept in the session cookie, and puts them in the request context.
func (app *App) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := app.SessionStore.Get(r, sessionCookieName)
		if err != nil {
			// A cookie signed with an old secret; start over with a fresh session.
			utils.AppLogger.WithError(err).Warn("Discarding unreadable session cookie")
		}

		sessionID, _ := session.Values[sessionIDValue].(string)
		csrfToken, _ := session.Values[csrfTokenValue].(string)

		if sessionID == "" || csrfToken == "" {
			if sessionID, err = GenerateSecureToken(16); err == nil {
				csrfToken, err = GenerateCSRFToken()
			}
			if err != nil {
				utils.AppLogger.WithError(err).Error("Failed to generate session tokens")
				utils.InternalServerError(w, "Failed to create session")
				return
			}

			session.Values[sessionIDValue] = sessionID
			session.Values[csrfTokenValue] = csrfToken
			if err := session.Save(r, w); err != nil {
				utils.AppLogger.WithError(err).Error("Failed to save session")
				utils.InternalServerError(w, "Failed to create session")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(utils.WithSession(r.Context(), sessionID, csrfToken)))
	})
}

func (app *App) CSRFMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" || r.Method == "DELETE" {
			expectedToken, ok := utils.GetCSRFToken(r)
			if !ok {
				utils.RespondWithError(w, http.StatusForbidden, "CSRF token not found in session")
				return
			}

			providedToken := r.Header.Get("X-CSRF-Token")
			if providedToken == "" && !isJSONRequest(r) {
				providedToken = r.FormValue("csrf_token")
			}

			if providedToken != expectedToken {
				utils.AppLogger.WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"method": r.Method,
				}).Warn("CSRF token mismatch")
				utils.RespondWithError(w, http.StatusForbidden, "CSRF token mismatch")
				return
			}
		}

		next.ServeHTTP(w, r)
	}
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// wantsJSON reports whether the caller asked for a JSON answer rather than
// the rendered page.
func wantsJSON(r *http.Request) bool {
	return isJSONRequest(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}
