package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"conectasat/internal/audit"
	"conectasat/internal/cfdi/handler/mocks"
	historymodels "conectasat/internal/history/models"
	"conectasat/internal/platform/metrics"
	"conectasat/internal/platform/middleware"
	"conectasat/internal/verification"
)

//go:generate mockgen -source=handler.go -destination=mocks/cfdi-mocks.go -package=mocks Verifier History Auditor
type CFDIHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *CFDIHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestCFDIHandlerSuite(t *testing.T) {
	suite.Run(t, new(CFDIHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockVerifier, *mocks.MockHistory, *mocks.MockAuditor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	verifier := mocks.NewMockVerifier(ctrl)
	history := mocks.NewMockHistory(ctrl)
	auditor := mocks.NewMockAuditor(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(verifier, history, nil, logger, nil, auditor)
	return handler, verifier, history, auditor
}

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func (s *CFDIHandlerSuite) TestHandleVerify() {
	handler, verifier, history, auditor := newTestHandler(s.T())

	want := verification.Request{
		UUID:        "6128396f-c09b-4ec6-8699-43c5f7e3b230",
		EmisorRFC:   "CDZ050722LA9",
		ReceptorRFC: "XIN06112344A",
		Total:       "12000.00",
	}
	result := verification.Result{
		Estado:             "Vigente",
		EsCancelable:       "Cancelable sin aceptación",
		EstatusCancelacion: "No disponible",
		CodigoEstatus:      "S - Comprobante obtenido satisfactoriamente.",
		ValidacionEFOS:     "200",
	}
	verifier.EXPECT().Verify(gomock.Any(), want).Return(result, nil)
	history.EXPECT().Record(gomock.Any(), int64(7), want, result).Return(nil)

	var published audit.Event
	auditor.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, ev audit.Event) { published = ev })

	body, err := json.Marshal(CFDIRequest{
		UUID:        want.UUID,
		EmisorRFC:   want.EmisorRFC,
		ReceptorRFC: want.ReceptorRFC,
		Total:       want.Total,
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerify(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi", body, 7))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp verification.Result
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "Vigente", resp.Estado)
	assert.Equal(s.T(), "No disponible", resp.EstatusCancelacion)
	assert.Equal(s.T(), "200", resp.ValidacionEFOS)

	assert.Equal(s.T(), want.UUID, published.UUID)
	assert.Equal(s.T(), int64(7), published.UserID)
	assert.Equal(s.T(), metrics.OutcomeOK, published.Outcome)
	assert.Equal(s.T(), "Vigente", published.Estado)
}

func (s *CFDIHandlerSuite) TestHandleVerify_ValidationError() {
	handler, _, _, _ := newTestHandler(s.T())

	body, err := json.Marshal(CFDIRequest{UUID: "abc"})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerify(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi", body, 7))

	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "emisor_rfc is required", resp["detail"])
}

func (s *CFDIHandlerSuite) TestHandleVerify_UpstreamFailure() {
	handler, verifier, _, auditor := newTestHandler(s.T())

	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(verification.Result{}, &verification.ServiceError{StatusCode: 500, Body: "boom"})

	var published audit.Event
	auditor.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, ev audit.Event) { published = ev })

	body, err := json.Marshal(CFDIRequest{
		UUID:        "abc",
		EmisorRFC:   "AAA010101AAA",
		ReceptorRFC: "BBB010101BBB",
		Total:       "100.00",
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerify(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi", body, 7))

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(s.T(), resp["detail"], "Error verifying CFDI:")
	assert.Contains(s.T(), resp["detail"], "500")

	// Failed attempts are audited too, with the outcome and no estado.
	assert.Equal(s.T(), metrics.OutcomeServiceError, published.Outcome)
	assert.Empty(s.T(), published.Estado)
}

func (s *CFDIHandlerSuite) TestHandleVerify_HistoryFailureStillSucceeds() {
	handler, verifier, history, auditor := newTestHandler(s.T())

	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(verification.Result{Estado: "Vigente"}, nil)
	history.EXPECT().Record(gomock.Any(), int64(7), gomock.Any(), gomock.Any()).
		Return(errors.New("db down"))
	auditor.EXPECT().Publish(gomock.Any(), gomock.Any())

	body, err := json.Marshal(CFDIRequest{
		UUID:        "abc",
		EmisorRFC:   "AAA010101AAA",
		ReceptorRFC: "BBB010101BBB",
		Total:       "100.00",
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerify(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi", body, 7))

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *CFDIHandlerSuite) TestHandleVerifyBatch_MixedOutcomes() {
	handler, verifier, history, auditor := newTestHandler(s.T())

	good := verification.Request{UUID: "uuid-1", EmisorRFC: "AAA010101AAA", ReceptorRFC: "BBB010101BBB", Total: "100.00"}
	bad := verification.Request{UUID: "uuid-2", EmisorRFC: "CCC010101CCC", ReceptorRFC: "DDD010101DDD", Total: "200.00"}

	verifier.EXPECT().Verify(gomock.Any(), good).
		Return(verification.Result{Estado: "Vigente"}, nil)
	verifier.EXPECT().Verify(gomock.Any(), bad).
		Return(verification.Result{}, &verification.TransportError{Cause: errors.New("connection refused")})
	history.EXPECT().Record(gomock.Any(), int64(7), good, gomock.Any()).Return(nil)

	// Every batch item gets audited, not just the single-verify path.
	var published []audit.Event
	auditor.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, ev audit.Event) { published = append(published, ev) }).
		Times(2)

	body, err := json.Marshal(BatchCFDIRequest{CFDIs: []CFDIRequest{
		{UUID: good.UUID, EmisorRFC: good.EmisorRFC, ReceptorRFC: good.ReceptorRFC, Total: good.Total},
		{UUID: bad.UUID, EmisorRFC: bad.EmisorRFC, ReceptorRFC: bad.ReceptorRFC, Total: bad.Total},
	}})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerifyBatch(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi-batch", body, 7))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp BatchCFDIResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Results, 2)

	assert.Equal(s.T(), "uuid-1", resp.Results[0].Request.UUID)
	assert.Nil(s.T(), resp.Results[0].Error)
	assert.Equal(s.T(), "Vigente", resp.Results[0].Response.Estado)

	assert.Equal(s.T(), "uuid-2", resp.Results[1].Request.UUID)
	require.NotNil(s.T(), resp.Results[1].Error)
	assert.Contains(s.T(), *resp.Results[1].Error, "connection refused")
	assert.Empty(s.T(), resp.Results[1].Response.Estado)

	require.Len(s.T(), published, 2)
	assert.Equal(s.T(), "uuid-1", published[0].UUID)
	assert.Equal(s.T(), int64(7), published[0].UserID)
	assert.Equal(s.T(), metrics.OutcomeOK, published[0].Outcome)
	assert.Equal(s.T(), "Vigente", published[0].Estado)
	assert.Equal(s.T(), "uuid-2", published[1].UUID)
	assert.Equal(s.T(), metrics.OutcomeTransportError, published[1].Outcome)
	assert.Empty(s.T(), published[1].Estado)
}

func (s *CFDIHandlerSuite) TestHandleVerifyBatch_Empty() {
	handler, _, _, _ := newTestHandler(s.T())

	body, err := json.Marshal(BatchCFDIRequest{})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	handler.handleVerifyBatch(w, authedRequest(http.MethodPost, "/cfdi/verify-cfdi-batch", body, 7))

	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func (s *CFDIHandlerSuite) TestHandleHistory() {
	handler, _, history, _ := newTestHandler(s.T())

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	history.EXPECT().ListByUser(gomock.Any(), int64(7), 0, 100).
		Return([]*historymodels.Entry{{CFDIUUID: "uuid-1", Estado: "Vigente", UserID: 7, CreatedAt: now}}, nil)
	history.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(int64(42), nil)

	w := httptest.NewRecorder()
	handler.handleHistory(w, authedRequest(http.MethodGet, "/cfdi/history", nil, 7))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp HistoryResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.History, 1)
	assert.Equal(s.T(), "uuid-1", resp.History[0].CFDIUUID)
	assert.Equal(s.T(), int64(42), resp.Total)
}

func (s *CFDIHandlerSuite) TestHandleHistory_Pagination() {
	handler, _, history, _ := newTestHandler(s.T())

	history.EXPECT().ListByUser(gomock.Any(), int64(7), 20, 10).
		Return([]*historymodels.Entry{}, nil)
	history.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(int64(0), nil)

	w := httptest.NewRecorder()
	handler.handleHistory(w, authedRequest(http.MethodGet, "/cfdi/history?skip=20&limit=10", nil, 7))

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *CFDIHandlerSuite) TestHandleHistoryByUUID() {
	handler, _, history, _ := newTestHandler(s.T())

	history.EXPECT().ListByUUID(gomock.Any(), "uuid-1").
		Return([]*historymodels.Entry{{CFDIUUID: "uuid-1"}, {CFDIUUID: "uuid-1"}}, nil)

	r := chi.NewRouter()
	handler.Register(r)

	req := authedRequest(http.MethodGet, "/cfdi/history/uuid-1", nil, 7)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("uuid", "uuid-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler.handleHistoryByUUID(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var entries []map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(s.T(), entries, 2)
}
