package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type mockKYCRepo struct {
	records     map[string]models.KYCRecord
	byUser      map[string]string
	reviews     map[string][]models.KYCReview
	resubmitted []string
	verdicts    []models.KYCReview
	created     *models.KYCRecord
}

func (m *mockKYCRepo) FindByUser(ctx context.Context, userID string) (*models.KYCRecord, error) {
	if id, ok := m.byUser[userID]; ok {
		if r, found := m.records[id]; found {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockKYCRepo) FindByID(ctx context.Context, id string) (*models.KYCRecord, error) {
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockKYCRepo) Create(ctx context.Context, record *models.KYCRecord) error {
	if m.records == nil {
		m.records = make(map[string]models.KYCRecord)
	}
	if m.byUser == nil {
		m.byUser = make(map[string]string)
	}
	if record.ID == "" {
		record.ID = "new-kyc"
	}
	m.records[record.ID] = *record
	m.byUser[record.UserID] = record.ID
	m.created = record
	return nil
}

func (m *mockKYCRepo) Resubmit(ctx context.Context, id string, docType models.KYCDocumentType, docRef string) error {
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.DocumentType = docType
	r.DocumentRef = docRef
	r.Status = models.KYCSubmitted
	m.records[id] = r
	m.resubmitted = append(m.resubmitted, id)
	return nil
}

func (m *mockKYCRepo) ApplyVerdict(ctx context.Context, review *models.KYCReview) error {
	r, ok := m.records[review.KYCID]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = review.NewStatus
	r.Remarks = review.Remarks
	m.records[review.KYCID] = r
	m.verdicts = append(m.verdicts, *review)
	return nil
}

func (m *mockKYCRepo) List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, int, error) {
	var out []models.KYCRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockKYCRepo) ListReviews(ctx context.Context, kycID string) ([]models.KYCReview, error) {
	return m.reviews[kycID], nil
}

func newKYCServiceForTest(repo *mockKYCRepo) (*KYCService, *mockAuditTrail) {
	audit := &mockAuditTrail{}
	return NewKYCService(repo, audit, nil, nil), audit
}

func TestKYCServiceSubmitFirstTime(t *testing.T) {
	repo := &mockKYCRepo{}
	svc, audit := newKYCServiceForTest(repo)

	record, err := svc.Submit(context.Background(), customerClaims("user-1"), dto.SubmitKYCRequest{
		DocumentType: "PASSPORT",
		DocumentRef:  "P1234567A",
	})

	require.NoError(t, err)
	assert.Equal(t, models.KYCSubmitted, record.Status)
	assert.Equal(t, models.KYCDocumentPassport, record.DocumentType)
	assert.Len(t, audit.logs, 1)
}

func TestKYCServiceSubmitWhileVerified(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", UserID: "user-1", Status: models.KYCVerified},
		},
		byUser: map[string]string{"user-1": "kyc-1"},
	}
	svc, _ := newKYCServiceForTest(repo)

	_, err := svc.Submit(context.Background(), customerClaims("user-1"), dto.SubmitKYCRequest{
		DocumentType: "NATIONAL_ID",
		DocumentRef:  "N-0001",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestKYCServiceSubmitWhilePending(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", UserID: "user-1", Status: models.KYCSubmitted},
		},
		byUser: map[string]string{"user-1": "kyc-1"},
	}
	svc, _ := newKYCServiceForTest(repo)

	_, err := svc.Submit(context.Background(), customerClaims("user-1"), dto.SubmitKYCRequest{
		DocumentType: "NATIONAL_ID",
		DocumentRef:  "N-0001",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestKYCServiceSubmitAfterRejection(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", UserID: "user-1", Status: models.KYCRejected},
		},
		byUser: map[string]string{"user-1": "kyc-1"},
	}
	svc, _ := newKYCServiceForTest(repo)

	record, err := svc.Submit(context.Background(), customerClaims("user-1"), dto.SubmitKYCRequest{
		DocumentType: "DRIVERS_LICENSE",
		DocumentRef:  "D-9999",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"kyc-1"}, repo.resubmitted)
	assert.Equal(t, models.KYCSubmitted, record.Status)
	assert.Nil(t, repo.created)
}

func TestKYCServiceReviewVerify(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", UserID: "user-1", Status: models.KYCSubmitted},
		},
	}
	svc, audit := newKYCServiceForTest(repo)

	record, err := svc.Review(context.Background(), adminClaims("admin-1"), "kyc-1", dto.KYCVerdictRequest{
		Status: "VERIFIED",
	})

	require.NoError(t, err)
	assert.Equal(t, models.KYCVerified, record.Status)
	require.Len(t, repo.verdicts, 1)
	assert.Equal(t, models.KYCSubmitted, repo.verdicts[0].PreviousStatus)
	assert.Equal(t, "admin-1", repo.verdicts[0].ReviewedBy)
	assert.Len(t, audit.logs, 1)
}

func TestKYCServiceReviewRejectRequiresRemarks(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", Status: models.KYCSubmitted},
		},
	}
	svc, _ := newKYCServiceForTest(repo)

	_, err := svc.Review(context.Background(), adminClaims("admin-1"), "kyc-1", dto.KYCVerdictRequest{
		Status: "REJECTED",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.verdicts)
}

func TestKYCServiceReviewNotPending(t *testing.T) {
	repo := &mockKYCRepo{
		records: map[string]models.KYCRecord{
			"kyc-1": {ID: "kyc-1", Status: models.KYCVerified},
		},
	}
	svc, _ := newKYCServiceForTest(repo)

	_, err := svc.Review(context.Background(), adminClaims("admin-1"), "kyc-1", dto.KYCVerdictRequest{
		Status: "VERIFIED",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestKYCServiceStatusNotFound(t *testing.T) {
	svc, _ := newKYCServiceForTest(&mockKYCRepo{})

	_, err := svc.Status(context.Background(), customerClaims("user-1"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
