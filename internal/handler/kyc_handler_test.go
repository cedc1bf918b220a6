package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type kycServiceMock struct {
	submitResp   *models.KYCRecord
	submitErr    error
	statusResp   *models.KYCRecord
	statusErr    error
	reviewResp   *models.KYCRecord
	reviewErr    error
	lastVerdict  dto.KYCVerdictRequest
	reviewCalled bool
}

func (m *kycServiceMock) Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitKYCRequest) (*models.KYCRecord, error) {
	return m.submitResp, m.submitErr
}

func (m *kycServiceMock) Status(ctx context.Context, claims *models.JWTClaims) (*models.KYCRecord, error) {
	return m.statusResp, m.statusErr
}

func (m *kycServiceMock) Review(ctx context.Context, claims *models.JWTClaims, kycID string, req dto.KYCVerdictRequest) (*models.KYCRecord, error) {
	m.reviewCalled = true
	m.lastVerdict = req
	return m.reviewResp, m.reviewErr
}

func (m *kycServiceMock) List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (m *kycServiceMock) Reviews(ctx context.Context, kycID string) ([]models.KYCReview, error) {
	return nil, nil
}

func TestKYCHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &kycServiceMock{
		submitResp: &models.KYCRecord{ID: "kyc-1", Status: models.KYCSubmitted},
	}
	handler := NewKYCHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitKYCRequest{DocumentType: "PASSPORT", DocumentRef: "P1234567A"})
	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPost, "/kyc", payload)

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestKYCHandlerSubmitConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &kycServiceMock{
		submitErr: appErrors.Clone(appErrors.ErrConflict, "a submission is already awaiting review"),
	}
	handler := NewKYCHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitKYCRequest{DocumentType: "PASSPORT", DocumentRef: "P1234567A"})
	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPost, "/kyc", payload)

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestKYCHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &kycServiceMock{
		statusErr: appErrors.Clone(appErrors.ErrNotFound, "no kyc submission on file"),
	}
	handler := NewKYCHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodGet, "/kyc/status", nil)

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestKYCHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &kycServiceMock{
		reviewResp: &models.KYCRecord{ID: "kyc-1", Status: models.KYCVerified},
	}
	handler := NewKYCHandler(mockSvc)

	payload, _ := json.Marshal(dto.KYCVerdictRequest{Status: "VERIFIED"})
	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPut, "/admin/kyc/kyc-1/review", payload)
	c.Params = gin.Params{{Key: "id", Value: "kyc-1"}}

	handler.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.reviewCalled)
	assert.Equal(t, "VERIFIED", mockSvc.lastVerdict.Status)
}

func TestKYCHandlerReviewInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKYCHandler(&kycServiceMock{})

	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPut, "/admin/kyc/kyc-1/review", []byte(`{"status":`))
	c.Params = gin.Params{{Key: "id", Value: "kyc-1"}}

	handler.Review(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
