// Package requesttrace carries request-scoped actor metadata through the
// call chain. Services consult it for permission rules (only the addressed
// company may accept or deny a request, only the requester may withdraw).
package requesttrace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxAuditInfo contextKey = "BUSINESS_NETWORK_REQUEST_TRACE"

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability and
// permission checks. UserID is set only for user actors; CompanyID is the
// company the actor is acting on behalf of, when any.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *uuid.UUID
	CompanyID *uuid.UUID
	RequestID string
}

// ActingFor reports whether the actor is operating on behalf of the company.
// System actors act for every company.
func (a AuditInfo) ActingFor(companyID uuid.UUID) bool {
	if a.ActorKind == ActorKindSystem {
		return true
	}
	return a.CompanyID != nil && *a.CompanyID == companyID
}

// Anonymous builds an AuditInfo for an unauthenticated caller.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for internal/administrative callers.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}

// ForUser builds an AuditInfo for a user acting on behalf of a company.
func ForUser(userID, companyID uuid.UUID, requestID string) AuditInfo {
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &userID,
		CompanyID: &companyID,
		RequestID: requestID,
	}
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not
// present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an
// anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}
