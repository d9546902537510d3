package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/sha1n/mcp-vaultcloud-server/internal/config"
)

const (
	// APIKeyHeader carries the key for apikey auth
	APIKeyHeader = "X-API-Key"
	realm        = `Basic realm="vaultcloud"`
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// NewMiddleware creates the authentication middleware selected by settings.
// Requests for publicPaths (e.g. health checks) bypass authentication.
func NewMiddleware(settings config.AuthSettings, publicPaths ...string) (Middleware, error) {
	var check func(*http.Request) bool
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		check = basicCredentials(settings.Basic)
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		check = apiKeyCredentials(settings.APIKeys)
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}

	challenge := settings.Type == config.AuthTypeBasic
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(publicPaths, r.URL.Path) || check(r) {
				next.ServeHTTP(w, r)
				return
			}
			slog.Debug("Rejected unauthenticated request", "path", r.URL.Path, "remote", r.RemoteAddr)
			if challenge {
				w.Header().Set("WWW-Authenticate", realm)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}, nil
}

func basicCredentials(settings config.BasicAuthSettings) func(*http.Request) bool {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := equal(user, settings.Username)
		passMatch := equal(pass, settings.Password)
		return ok && userMatch && passMatch
	}
}

func apiKeyCredentials(apiKeys []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		key := r.Header.Get(APIKeyHeader)
		return key != "" && slices.ContainsFunc(apiKeys, func(valid string) bool {
			return equal(key, valid)
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
