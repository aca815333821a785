package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/service"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

type mockService struct {
	createRequestFn func(ctx context.Context, audit requesttrace.AuditInfo, input service.CreateRequestInput) (service.Request, error)
	getRequestFn    func(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (service.Request, error)
	listIncomingFn  func(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Request, error)
	listOutgoingFn  func(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Request, error)
	acceptFn        func(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID, relType *string) (service.Relationship, error)
	denyFn          func(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) (service.Request, error)
	withdrawFn      func(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) error
	getFn           func(ctx context.Context, id uuid.UUID) (service.Relationship, error)
	getByPairFn     func(ctx context.Context, first, second uuid.UUID) (service.Relationship, error)
	listFn          func(ctx context.Context, companyID uuid.UUID) ([]service.Relationship, error)
	listDeadFn      func(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Relationship, error)
	deleteFn        func(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	hardDeleteFn    func(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
}

func (m *mockService) CreateRequest(ctx context.Context, audit requesttrace.AuditInfo, input service.CreateRequestInput) (service.Request, error) {
	if m.createRequestFn == nil {
		panic("createRequestFn not configured")
	}
	return m.createRequestFn(ctx, audit, input)
}

func (m *mockService) GetRequest(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (service.Request, error) {
	if m.getRequestFn == nil {
		panic("getRequestFn not configured")
	}
	return m.getRequestFn(ctx, audit, id)
}

func (m *mockService) ListIncomingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Request, error) {
	if m.listIncomingFn == nil {
		panic("listIncomingFn not configured")
	}
	return m.listIncomingFn(ctx, audit, companyID)
}

func (m *mockService) ListOutgoingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Request, error) {
	if m.listOutgoingFn == nil {
		panic("listOutgoingFn not configured")
	}
	return m.listOutgoingFn(ctx, audit, companyID)
}

func (m *mockService) Accept(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID, relType *string) (service.Relationship, error) {
	if m.acceptFn == nil {
		panic("acceptFn not configured")
	}
	return m.acceptFn(ctx, audit, requestID, relType)
}

func (m *mockService) Deny(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) (service.Request, error) {
	if m.denyFn == nil {
		panic("denyFn not configured")
	}
	return m.denyFn(ctx, audit, requestID)
}

func (m *mockService) Withdraw(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) error {
	if m.withdrawFn == nil {
		panic("withdrawFn not configured")
	}
	return m.withdrawFn(ctx, audit, requestID)
}

func (m *mockService) GetRelationship(ctx context.Context, id uuid.UUID) (service.Relationship, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockService) GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (service.Relationship, error) {
	if m.getByPairFn == nil {
		panic("getByPairFn not configured")
	}
	return m.getByPairFn(ctx, first, second)
}

func (m *mockService) ListRelationships(ctx context.Context, companyID uuid.UUID) ([]service.Relationship, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, companyID)
}

func (m *mockService) ListDeadRelationships(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]service.Relationship, error) {
	if m.listDeadFn == nil {
		panic("listDeadFn not configured")
	}
	return m.listDeadFn(ctx, audit, companyID)
}

func (m *mockService) DeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, audit, id)
}

func (m *mockService) HardDeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if m.hardDeleteFn == nil {
		panic("hardDeleteFn not configured")
	}
	return m.hardDeleteFn(ctx, audit, id)
}

func newTestHandler(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	return New(svc, zaptest.NewLogger(t)).Routes()
}

func TestCreateRequestCreated(t *testing.T) {
	t.Parallel()

	addressedID := uuid.New()
	requestID := uuid.New()

	svc := &mockService{}
	svc.createRequestFn = func(ctx context.Context, audit requesttrace.AuditInfo, input service.CreateRequestInput) (service.Request, error) {
		require.Equal(t, addressedID, input.AddressedCompanyID)
		require.NotNil(t, input.Message)
		return service.Request{
			ID:                 requestID,
			AddressedCompanyID: input.AddressedCompanyID,
		}, nil
	}

	body := `{"addressedCompanyId":"` + addressedID.String() + `","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/v1/relationships/requests/"+requestID.String(), rec.Header().Get("Location"))

	var payload service.Request
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	require.Equal(t, requestID, payload.ID)
}

func TestCreateRequestRejectsInvalidBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(`{"addressedCompanyId":""}`))
	rec := httptest.NewRecorder()

	newTestHandler(t, &mockService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestAcceptWithoutBody(t *testing.T) {
	t.Parallel()

	requestID := uuid.New()
	relationshipID := uuid.New()

	svc := &mockService{}
	svc.acceptFn = func(ctx context.Context, audit requesttrace.AuditInfo, gotRequestID uuid.UUID, relType *string) (service.Relationship, error) {
		require.Equal(t, requestID, gotRequestID)
		require.Nil(t, relType)
		return service.Relationship{
			ID:    relationshipID,
			State: persistence.VisibilityOpen,
		}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/accept", nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAcceptWithType(t *testing.T) {
	t.Parallel()

	requestID := uuid.New()

	svc := &mockService{}
	svc.acceptFn = func(ctx context.Context, audit requesttrace.AuditInfo, gotRequestID uuid.UUID, relType *string) (service.Relationship, error) {
		require.NotNil(t, relType)
		require.Equal(t, "supplier", *relType)
		return service.Relationship{ID: uuid.New(), Type: relType}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/accept", strings.NewReader(`{"type":"supplier"}`))
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestDenyConflictMapsTo409(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.denyFn = func(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) (service.Request, error) {
		return service.Request{}, service.ErrRequestConflict
	}

	req := httptest.NewRequest(http.MethodPost, "/requests/"+uuid.NewString()+"/deny", nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestWithdrawForbiddenMapsTo403(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.withdrawFn = func(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) error {
		return service.ErrForbidden
	}

	req := httptest.NewRequest(http.MethodDelete, "/requests/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetRelationshipNotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.getFn = func(ctx context.Context, id uuid.UUID) (service.Relationship, error) {
		return service.Relationship{}, service.ErrRelationshipNotFound
	}

	req := httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathIDMustBeUUID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/requests/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, &mockService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
