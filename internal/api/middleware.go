// Package api implements the Larder REST API using chi.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/larder/internal/models"
)

type actorKey struct{}

// Claims are the identity-provider token fields Larder reads. The
// subject is the numeric user id.
type Claims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// UserSyncer mirrors verified identities into local storage.
type UserSyncer interface {
	EnsureUser(ctx context.Context, u models.User) error
}

// AuthOptions configures ActorMiddleware.
type AuthOptions struct {
	// Enabled turns on HS256 bearer token verification. When false every
	// request acts as DevActor.
	Enabled  bool
	Secret   []byte
	DevActor models.Actor
}

// ActorMiddleware resolves the caller and stores it in the request context.
// Requests without an Authorization header proceed as the anonymous actor;
// a header carrying an invalid token is rejected with 401.
func ActorMiddleware(opts AuthOptions, users UserSyncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Enabled {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), opts.DevActor)))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), models.Anonymous)))
				return
			}
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}

			claims, err := ParseToken(raw, opts.Secret)
			if err != nil {
				slog.Debug("token rejected", slog.String("error", err.Error()))
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || id <= 0 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}

			u := models.User{ID: id, Username: claims.Username, Email: claims.Email}
			if err := users.EnsureUser(r.Context(), u); err != nil {
				slog.Error("sync user failed", slog.Int64("user_id", id), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
				return
			}

			actor := models.Actor{UserID: id, Admin: claims.Admin}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by ActorMiddleware, or the anonymous
// actor when none is set.
func ActorFrom(ctx context.Context) models.Actor {
	if a, ok := ctx.Value(actorKey{}).(models.Actor); ok {
		return a
	}
	return models.Anonymous
}
