package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

func captureAudit(t *testing.T, mutate func(r *http.Request)) requesttrace.AuditInfo {
	t.Helper()

	var captured requesttrace.AuditInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requesttrace.FromContextOrAnonymous(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()

	RequestTrace(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	return captured
}

func TestRequestTraceAnonymousByDefault(t *testing.T) {
	t.Parallel()

	audit := captureAudit(t, nil)
	require.Equal(t, requesttrace.ActorKindAnonymous, audit.ActorKind)
	require.Nil(t, audit.UserID)
	require.Nil(t, audit.CompanyID)
}

func TestRequestTraceParsesActingParty(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	companyID := uuid.New()

	audit := captureAudit(t, func(r *http.Request) {
		r.Header.Set(HeaderActingUser, userID.String())
		r.Header.Set(HeaderActingCompany, companyID.String())
	})

	require.Equal(t, requesttrace.ActorKindUser, audit.ActorKind)
	require.NotNil(t, audit.UserID)
	require.Equal(t, userID, *audit.UserID)
	require.NotNil(t, audit.CompanyID)
	require.Equal(t, companyID, *audit.CompanyID)
}

func TestRequestTraceInvalidUserFallsBackToAnonymous(t *testing.T) {
	t.Parallel()

	audit := captureAudit(t, func(r *http.Request) {
		r.Header.Set(HeaderActingUser, "not-a-uuid")
	})

	require.Equal(t, requesttrace.ActorKindAnonymous, audit.ActorKind)
}

func TestRequestTraceSystemActor(t *testing.T) {
	t.Parallel()

	audit := captureAudit(t, func(r *http.Request) {
		r.Header.Set(HeaderActingSystem, "true")
		r.Header.Set(HeaderActingUser, uuid.NewString())
	})

	require.Equal(t, requesttrace.ActorKindSystem, audit.ActorKind)
	require.True(t, audit.ActingFor(uuid.New()))
}
