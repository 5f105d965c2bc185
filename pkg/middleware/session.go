package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brightclass/brightclass/pkg/identity"
	"github.com/brightclass/brightclass/pkg/observability"
)

// SessionMiddleware verifies bearer tokens and attaches the resulting
// identity to the request context. Requests without a usable session still
// proceed; the decision engine denies them downstream. The optional flag
// only controls whether a *malformed* credential is rejected outright.
type SessionMiddleware struct {
	verifier identity.Verifier
	optional bool
	log      logrus.FieldLogger
}

// NewSessionMiddleware creates the session middleware. With optional=true an
// invalid token is treated like a missing one instead of a 401.
func NewSessionMiddleware(verifier identity.Verifier, optional bool, log logrus.FieldLogger) *SessionMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionMiddleware{
		verifier: verifier,
		optional: optional,
		log:      log,
	}
}

// Handler wraps an HTTP handler with session resolution.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), uuid.NewString())

		token := bearerToken(r)
		if token == "" {
			// Anonymous request. Every permission check fails closed, so
			// handlers that tolerate anonymity can still run.
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		id, err := m.verifier.Verify(ctx, token)
		if err != nil {
			if m.optional {
				m.log.WithError(err).Debug("ignoring invalid session token")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			unauthorizedResponse(w, "invalid or expired session")
			return
		}

		ctx = identity.WithIdentity(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <t>" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
