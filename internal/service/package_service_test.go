package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/repository"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type mockPackageRepo struct {
	packages      map[string]models.Package
	owners        map[string]string
	scanCounts    map[string]int
	transitionErr error
	transitions   []repository.TransitionParams
	files         []models.PackageFile
	events        map[string][]models.PackageStatusEvent
	created       *models.Package
}

func (m *mockPackageRepo) FindByID(ctx context.Context, id string) (*models.Package, error) {
	if p, ok := m.packages[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPackageRepo) FindOwner(ctx context.Context, packageID string) (string, error) {
	if owner, ok := m.owners[packageID]; ok {
		return owner, nil
	}
	return "", sql.ErrNoRows
}

func (m *mockPackageRepo) Create(ctx context.Context, pkg *models.Package) error {
	if m.packages == nil {
		m.packages = make(map[string]models.Package)
	}
	if pkg.ID == "" {
		pkg.ID = "new-package"
	}
	m.packages[pkg.ID] = *pkg
	m.created = pkg
	return nil
}

func (m *mockPackageRepo) Transition(ctx context.Context, params repository.TransitionParams) error {
	if m.transitionErr != nil {
		return m.transitionErr
	}
	m.transitions = append(m.transitions, params)
	if p, ok := m.packages[params.PackageID]; ok {
		p.Status = params.ToStatus
		m.packages[params.PackageID] = p
	}
	return nil
}

func (m *mockPackageRepo) List(ctx context.Context, filter models.PackageFilter) ([]dto.PackageItem, int, error) {
	var items []dto.PackageItem
	for _, p := range m.packages {
		items = append(items, dto.PackageItem{ID: p.ID, Status: p.Status})
	}
	return items, len(items), nil
}

func (m *mockPackageRepo) AttachFile(ctx context.Context, file *models.PackageFile) error {
	if file.ID == "" {
		file.ID = "new-file"
	}
	m.files = append(m.files, *file)
	return nil
}

func (m *mockPackageRepo) ListFiles(ctx context.Context, packageID string) ([]models.PackageFile, error) {
	var out []models.PackageFile
	for _, f := range m.files {
		if f.PackageID == packageID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockPackageRepo) CountScanFiles(ctx context.Context, registrationID string) (int, error) {
	return m.scanCounts[registrationID], nil
}

func (m *mockPackageRepo) ListStatusEvents(ctx context.Context, packageID string) ([]models.PackageStatusEvent, error) {
	return m.events[packageID], nil
}

type mockAddressReader struct {
	addresses map[string]models.Address
}

func (m *mockAddressReader) FindByID(ctx context.Context, id string) (*models.Address, error) {
	if a, ok := m.addresses[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

type mockRegistrationReader struct {
	registrations map[string]models.Registration
}

func (m *mockRegistrationReader) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if r, ok := m.registrations[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditTrail struct {
	logs []models.AuditLog
}

func (m *mockAuditTrail) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) Invalidate(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func customerClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleCustomer}
}

func adminClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleAdmin}
}

func newPackageServiceForTest(repo *mockPackageRepo, addresses *mockAddressReader, registrations *mockRegistrationReader) (*PackageService, *mockAuditTrail, *mockCacheInvalidator) {
	audit := &mockAuditTrail{}
	cache := &mockCacheInvalidator{}
	svc := NewPackageService(repo, addresses, registrations, audit, cache, nil, nil, PackageLimits{MaxScanFiles: 3})
	return svc, audit, cache
}

func TestPackageServiceIntake(t *testing.T) {
	repo := &mockPackageRepo{}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationActive},
	}}
	svc, audit, cache := newPackageServiceForTest(repo, &mockAddressReader{}, regs)

	pkg, err := svc.Intake(context.Background(), adminClaims("admin-1"), dto.CreatePackageRequest{
		RegistrationID: "reg-1",
		PackageType:    "PARCEL",
		Description:    "brown box",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, pkg.Status)
	assert.Equal(t, models.PackageTypeParcel, pkg.PackageType)
	assert.Len(t, audit.logs, 1)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestPackageServiceIntakeInactiveRegistration(t *testing.T) {
	repo := &mockPackageRepo{}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", Status: models.RegistrationExpired},
	}}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, regs)

	_, err := svc.Intake(context.Background(), adminClaims("admin-1"), dto.CreatePackageRequest{
		RegistrationID: "reg-1",
		PackageType:    "MAIL",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestPackageServiceDoRequestRelease(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", RegistrationID: "reg-1", PackageType: models.PackageTypeParcel, Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	addresses := &mockAddressReader{addresses: map[string]models.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1"},
	}}
	svc, audit, _ := newPackageServiceForTest(repo, addresses, &mockRegistrationReader{})

	addrID := "addr-1"
	pkg, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action:    "request_release",
		AddressID: &addrID,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusRequestToRelease, pkg.Status)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, models.StatusStored, repo.transitions[0].FromStatus)
	require.NotNil(t, repo.transitions[0].AddressID)
	assert.Equal(t, "addr-1", *repo.transitions[0].AddressID)
	assert.Len(t, audit.logs, 1)
}

func TestPackageServiceDoReleaseRequiresAddressOrProxy(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "request_release",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.transitions)
}

func TestPackageServiceDoReleaseProxyOnly(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	proxyName := "Juan dela Cruz"
	proxyMobile := "09171234567"
	pkg, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action:      "request_release",
		ProxyName:   &proxyName,
		ProxyMobile: &proxyMobile,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusRequestToRelease, pkg.Status)
	require.Len(t, repo.transitions, 1)
	assert.Nil(t, repo.transitions[0].AddressID)
	require.NotNil(t, repo.transitions[0].ProxyName)
	assert.Equal(t, "Juan dela Cruz", *repo.transitions[0].ProxyName)
	require.NotNil(t, repo.transitions[0].ProxyMobile)
	assert.Equal(t, "09171234567", *repo.transitions[0].ProxyMobile)
}

func TestPackageServiceDoReleaseForeignAddress(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	addresses := &mockAddressReader{addresses: map[string]models.Address{
		"addr-2": {ID: "addr-2", UserID: "user-2"},
	}}
	svc, _, _ := newPackageServiceForTest(repo, addresses, &mockRegistrationReader{})

	addrID := "addr-2"
	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action:    "request_release",
		AddressID: &addrID,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoProxyPickupRequiresMobile(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	addresses := &mockAddressReader{addresses: map[string]models.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1"},
	}}
	svc, _, _ := newPackageServiceForTest(repo, addresses, &mockRegistrationReader{})

	addrID := "addr-1"
	proxyName := "Juan dela Cruz"
	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action:    "request_release",
		AddressID: &addrID,
		ProxyName: &proxyName,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoForeignPackageForbidden(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-2"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "request_dispose",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoUnknownAction(t *testing.T) {
	svc, _, _ := newPackageServiceForTest(&mockPackageRepo{}, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), adminClaims("admin-1"), "pkg-1", dto.PackageActionRequest{
		Action: "teleport",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoAdminActionAsCustomer(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusRequestToRelease},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "approve_release",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.transitions)
}

func TestPackageServiceDoTerminalStatus(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusDisposed},
		},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), adminClaims("admin-1"), "pkg-1", dto.PackageActionRequest{
		Action: "approve_dispose",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoStaleTransition(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusRequestToRelease},
		},
		transitionErr: repository.ErrStaleStatus,
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), adminClaims("admin-1"), "pkg-1", dto.PackageActionRequest{
		Action: "approve_release",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoCancelClearsReleaseDetails(t *testing.T) {
	addrID := "addr-1"
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusRequestToRelease, ReleaseAddressID: &addrID},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	pkg, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "cancel_request",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, pkg.Status)
	require.Len(t, repo.transitions, 1)
	assert.Nil(t, repo.transitions[0].AddressID)
	assert.Nil(t, pkg.ReleaseAddressID)
}

func TestPackageServiceDoScanOnParcel(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", RegistrationID: "reg-1", PackageType: models.PackageTypeParcel, Status: models.StatusStored},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "request_scan",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoScanQuotaReached(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", RegistrationID: "reg-1", PackageType: models.PackageTypeMail, Status: models.StatusStored},
		},
		owners:     map[string]string{"pkg-1": "user-1"},
		scanCounts: map[string]int{"reg-1": 3},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "request_scan",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageFull.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceDoCompleteScanRequiresScanFile(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", RegistrationID: "reg-1", PackageType: models.PackageTypeMail, Status: models.StatusRequestToScan},
		},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), adminClaims("admin-1"), "pkg-1", dto.PackageActionRequest{
		Action: "complete_scan",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.transitions)

	repo.files = append(repo.files, models.PackageFile{ID: "file-1", PackageID: "pkg-1", Kind: models.FileKindScan})

	pkg, err := svc.Do(context.Background(), adminClaims("admin-1"), "pkg-1", dto.PackageActionRequest{
		Action: "complete_scan",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, pkg.Status)
}

func TestPackageServiceDoConfirmReceiptRequiresProof(t *testing.T) {
	addrID := "addr-1"
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", Status: models.StatusReleased, ReleaseAddressID: &addrID},
		},
		owners: map[string]string{"pkg-1": "user-1"},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "confirm_receipt",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.transitions)

	repo.files = append(repo.files, models.PackageFile{ID: "file-1", PackageID: "pkg-1", Kind: models.FileKindProof})

	pkg, err := svc.Do(context.Background(), customerClaims("user-1"), "pkg-1", dto.PackageActionRequest{
		Action: "confirm_receipt",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusRetrieved, pkg.Status)
	require.NotNil(t, pkg.ReleaseAddressID)
	assert.Equal(t, "addr-1", *pkg.ReleaseAddressID)
}

func TestPackageServiceGetNotFound(t *testing.T) {
	svc, _, _ := newPackageServiceForTest(&mockPackageRepo{}, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.Get(context.Background(), adminClaims("admin-1"), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPackageServiceAttachScanQuota(t *testing.T) {
	repo := &mockPackageRepo{
		packages: map[string]models.Package{
			"pkg-1": {ID: "pkg-1", RegistrationID: "reg-1", PackageType: models.PackageTypeDocument, Status: models.StatusRequestToScan},
		},
		scanCounts: map[string]int{"reg-1": 3},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.AttachFile(context.Background(), adminClaims("admin-1"), "pkg-1", dto.AttachFileRequest{
		Kind:     "SCAN",
		Path:     "scans/pkg-1/page1.pdf",
		MimeType: "application/pdf",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageFull.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.files)
}

func TestPackageServiceHistoryOwnership(t *testing.T) {
	repo := &mockPackageRepo{
		owners: map[string]string{"pkg-1": "user-2"},
		events: map[string][]models.PackageStatusEvent{
			"pkg-1": {{PackageID: "pkg-1", Action: "request_release"}},
		},
	}
	svc, _, _ := newPackageServiceForTest(repo, &mockAddressReader{}, &mockRegistrationReader{})

	_, err := svc.History(context.Background(), customerClaims("user-1"), "pkg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	events, err := svc.History(context.Background(), adminClaims("admin-1"), "pkg-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
