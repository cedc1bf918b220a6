package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/middleware"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type packageServiceMock struct {
	intakeResp *models.Package
	intakeErr  error
	doResp     *models.Package
	doErr      error
	listResp   []dto.PackageItem
	listErr    error
	lastAction dto.PackageActionRequest
	lastFilter models.PackageFilter
	doCalled   bool
	listCalled bool
}

func (m *packageServiceMock) Intake(ctx context.Context, claims *models.JWTClaims, req dto.CreatePackageRequest) (*models.Package, error) {
	return m.intakeResp, m.intakeErr
}

func (m *packageServiceMock) Do(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.PackageActionRequest) (*models.Package, error) {
	m.doCalled = true
	m.lastAction = req
	return m.doResp, m.doErr
}

func (m *packageServiceMock) Get(ctx context.Context, claims *models.JWTClaims, packageID string) (*dto.PackageItem, error) {
	return nil, appErrors.ErrNotFound
}

func (m *packageServiceMock) List(ctx context.Context, claims *models.JWTClaims, filter models.PackageFilter) ([]dto.PackageItem, *models.Pagination, error) {
	m.listCalled = true
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *packageServiceMock) AttachFile(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.AttachFileRequest) (*models.PackageFile, error) {
	return &models.PackageFile{ID: "file-1", PackageID: packageID}, nil
}

func (m *packageServiceMock) History(ctx context.Context, claims *models.JWTClaims, packageID string) ([]models.PackageStatusEvent, error) {
	return nil, nil
}

func testContext(w *httptest.ResponseRecorder, method, target string, body []byte) (*gin.Context, *http.Request) {
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c, req
}

func TestPackageHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &packageServiceMock{
		listResp: []dto.PackageItem{{ID: "pkg-1", Status: models.StatusStored}},
	}
	handler := NewPackageHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodGet, "/packages?status=stored&page=2", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	require.NotNil(t, mockSvc.lastFilter.Status)
	assert.Equal(t, models.StatusStored, *mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
}

func TestPackageHandlerActionInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPackageHandler(&packageServiceMock{})

	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPatch, "/packages/pkg-1/action", []byte(`{"action":`))
	c.Params = gin.Params{{Key: "id", Value: "pkg-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPackageHandlerAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &packageServiceMock{
		doResp: &models.Package{ID: "pkg-1", Status: models.StatusRequestToRelease},
	}
	handler := NewPackageHandler(mockSvc)

	payload, _ := json.Marshal(dto.PackageActionRequest{Action: "request_release"})
	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPatch, "/packages/pkg-1/action", payload)
	c.Params = gin.Params{{Key: "id", Value: "pkg-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.doCalled)
	assert.Equal(t, "request_release", mockSvc.lastAction.Action)
}

func TestPackageHandlerActionConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &packageServiceMock{
		doErr: appErrors.Clone(appErrors.ErrConflict, "package status changed, reload and retry"),
	}
	handler := NewPackageHandler(mockSvc)

	payload, _ := json.Marshal(dto.PackageActionRequest{Action: "approve_release"})
	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodPatch, "/packages/pkg-1/action", payload)
	c.Params = gin.Params{{Key: "id", Value: "pkg-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPackageHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPackageHandler(&packageServiceMock{})

	w := httptest.NewRecorder()
	c, _ := testContext(w, http.MethodGet, "/packages/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
