// Package authz resolves the caller's identity from a session token and
// enforces per-route access checks before a handler runs.
//
// Identity resolution never rejects a request: a missing or bad token just
// leaves the request anonymous. Rejection is the job of the checks passed
// to Require.
package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/logging"
	"github.com/dmitrijs2005/messagely/internal/server/auth"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying username as the caller.
func WithIdentity(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, identityKey{}, username)
}

// IdentityFrom returns the caller attached by Authenticate, if any.
func IdentityFrom(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(identityKey{}).(string)
	return u, ok && u != ""
}

// TokenVerifier is satisfied by *auth.Issuer.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate attaches the token's username to the request context when the
// token verifies, and passes the request through untouched otherwise.
func Authenticate(v TokenVerifier, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				log.Debug(r.Context(), "token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Username)))
		})
	}
}

// extractToken looks for the token field in the query string, then in a
// JSON body. The body is restored in full so handlers can decode it again;
// bounding its size is left to the caller.
func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get(common.TokenFieldName); t != "" {
		return t
	}

	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		// Hand the handler what was read plus the failing reader so it sees
		// the same error.
		r.Body = readCloser{io.MultiReader(bytes.NewReader(b), r.Body), r.Body}
		return ""
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if len(b) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(b, &payload); err != nil {
		return ""
	}

	var t string
	if raw, ok := payload[common.TokenFieldName]; ok {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

type readCloser struct {
	io.Reader
	io.Closer
}
