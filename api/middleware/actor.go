package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ActorHeader carries the authenticated principal's id. Authentication itself
// happens upstream (gateway); the API trusts the header it is handed.
const ActorHeader = "X-Actor-ID"

type actorIDKey struct{}

// Actor extracts the acting principal from the request header and stores it
// on the context. Requests without the header pass through; handlers that
// need an actor reject them individually.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(ActorHeader))
			if raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), actorIDKey{}, actorID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorIDFromContext returns the acting principal, or uuid.Nil when the
// request carried none.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
