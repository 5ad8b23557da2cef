package auth

import (
	"context"
	"log/slog"
	"net/http"
)

// TokenHeader is the request header that carries the bearer token.
const TokenHeader = "x-auth-token"

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity.
type contextKey string

const userIDKey contextKey = "userID"

// Decoder turns a token string into a user ID. *TokenService implements it.
type Decoder interface {
	Decode(token string) (string, error)
}

// Gate attaches the caller's identity to the request context.
//
// It is permissive: a request without a token continues anonymously and
// handlers decide whether they need an identity (see RequireIdentity).
// A token that is present but cannot be decoded stops the request with 401.
func Gate(tokens Decoder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Decode(token)
			if err != nil {
				logger.Debug("rejecting undecodable token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, "Invalid Token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireIdentity rejects anonymous requests with 401. Mount it after Gate on
// routes that need a caller.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			writeUnauthorized(w, "No token, authorization denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"msg":"` + msg + `"}` + "\n"))
}
