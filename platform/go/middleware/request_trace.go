package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// Acting-party headers. Token verification lives in the edge layer; by the
// time a request reaches this service the identity asserted here has already
// been authenticated upstream.
const (
	HeaderActingUser    = "X-Acting-User"
	HeaderActingCompany = "X-Acting-Company"
	HeaderActingSystem  = "X-Acting-System"
)

// RequestTrace derives the request-scoped AuditInfo from the acting-party
// headers and stores it on the context. Requests without a valid acting user
// proceed as anonymous; services decide which operations require an actor.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimw.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)

		if r.Header.Get(HeaderActingSystem) == "true" {
			// Administrative tooling behind the internal ingress.
			ctx := requesttrace.IntoContext(r.Context(), requesttrace.System(requestID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if rawUser := r.Header.Get(HeaderActingUser); rawUser != "" {
			if userID, err := uuid.Parse(rawUser); err == nil {
				audit = requesttrace.AuditInfo{
					ActorKind: requesttrace.ActorKindUser,
					UserID:    &userID,
					RequestID: requestID,
				}
				if rawCompany := r.Header.Get(HeaderActingCompany); rawCompany != "" {
					if companyID, err := uuid.Parse(rawCompany); err == nil {
						audit.CompanyID = &companyID
					}
				}
			}
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
