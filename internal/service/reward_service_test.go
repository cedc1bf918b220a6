package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type mockRewardRepo struct {
	claims  map[string]models.RewardClaim
	open    map[string]int
	created *models.RewardClaim
	updates []models.RewardStatus
}

func (m *mockRewardRepo) FindByID(ctx context.Context, id string) (*models.RewardClaim, error) {
	if c, ok := m.claims[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRewardRepo) Create(ctx context.Context, claim *models.RewardClaim) error {
	if m.claims == nil {
		m.claims = make(map[string]models.RewardClaim)
	}
	if claim.ID == "" {
		claim.ID = "new-claim"
	}
	m.claims[claim.ID] = *claim
	m.created = claim
	return nil
}

func (m *mockRewardRepo) CountOpenForUser(ctx context.Context, userID string) (int, error) {
	return m.open[userID], nil
}

func (m *mockRewardRepo) UpdateStatus(ctx context.Context, id string, status models.RewardStatus, proofPath *string, processedBy string, paidAt *time.Time) error {
	c, ok := m.claims[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	if proofPath != nil {
		c.ProofPath = proofPath
	}
	c.ProcessedBy = &processedBy
	c.PaidAt = paidAt
	m.claims[id] = c
	m.updates = append(m.updates, status)
	return nil
}

func (m *mockRewardRepo) List(ctx context.Context, filter models.RewardFilter) ([]models.RewardClaim, int, error) {
	var out []models.RewardClaim
	for _, c := range m.claims {
		if filter.UserID != "" && c.UserID != filter.UserID {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

type mockReferralCounter struct {
	counts map[string]int
}

func (m *mockReferralCounter) CountReferrals(ctx context.Context, userID string) (int, error) {
	return m.counts[userID], nil
}

func newRewardServiceForTest(repo *mockRewardRepo, users *mockReferralCounter) (*RewardService, *mockAuditTrail) {
	audit := &mockAuditTrail{}
	svc := NewRewardService(repo, users, audit, nil, nil, RewardConfig{ReferralThreshold: 3})
	return svc, audit
}

func TestRewardServiceClaim(t *testing.T) {
	repo := &mockRewardRepo{}
	users := &mockReferralCounter{counts: map[string]int{"user-1": 4}}
	svc, audit := newRewardServiceForTest(repo, users)

	claim, err := svc.Claim(context.Background(), customerClaims("user-1"))

	require.NoError(t, err)
	assert.Equal(t, models.RewardPending, claim.Status)
	assert.Equal(t, 4, claim.ReferralCount)
	assert.Len(t, audit.logs, 1)
}

func TestRewardServiceClaimBelowThreshold(t *testing.T) {
	repo := &mockRewardRepo{}
	users := &mockReferralCounter{counts: map[string]int{"user-1": 2}}
	svc, _ := newRewardServiceForTest(repo, users)

	_, err := svc.Claim(context.Background(), customerClaims("user-1"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRewardServiceClaimAlreadyOpen(t *testing.T) {
	repo := &mockRewardRepo{open: map[string]int{"user-1": 1}}
	users := &mockReferralCounter{counts: map[string]int{"user-1": 5}}
	svc, _ := newRewardServiceForTest(repo, users)

	_, err := svc.Claim(context.Background(), customerClaims("user-1"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRewardServiceUpdateToProcessing(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", UserID: "user-1", Status: models.RewardPending},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	proof := "proofs/rw-1.jpg"
	claim, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status:    "PROCESSING",
		ProofPath: &proof,
	})

	require.NoError(t, err)
	assert.Equal(t, models.RewardProcessing, claim.Status)
	require.NotNil(t, claim.ProofPath)
	assert.Equal(t, proof, *claim.ProofPath)
	assert.Nil(t, claim.PaidAt)
}

func TestRewardServiceUpdateProcessingRequiresProof(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", Status: models.RewardPending},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	_, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status: "PROCESSING",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updates)
}

func TestRewardServiceUpdateToPaid(t *testing.T) {
	proof := "proofs/rw-1.jpg"
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", Status: models.RewardProcessing, ProofPath: &proof},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	claim, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status: "PAID",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RewardPaid, claim.Status)
	assert.NotNil(t, claim.PaidAt)
}

func TestRewardServiceUpdatePaidIsFinal(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", Status: models.RewardPaid},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	_, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status: "PROCESSING",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestRewardServiceUpdatePendingToPaidRequiresProof(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", Status: models.RewardPending},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	_, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status: "PAID",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updates)
}

func TestRewardServiceUpdatePendingToPaidWithProof(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", Status: models.RewardPending},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	proof := "proofs/rw-1.jpg"
	claim, err := svc.Update(context.Background(), adminClaims("admin-1"), "rw-1", dto.UpdateRewardRequest{
		Status:    "PAID",
		ProofPath: &proof,
	})

	require.NoError(t, err)
	assert.Equal(t, models.RewardPaid, claim.Status)
	require.NotNil(t, claim.ProofPath)
	assert.Equal(t, "proofs/rw-1.jpg", *claim.ProofPath)
	assert.NotNil(t, claim.PaidAt)
}

func TestRewardServiceListPinsCustomer(t *testing.T) {
	repo := &mockRewardRepo{claims: map[string]models.RewardClaim{
		"rw-1": {ID: "rw-1", UserID: "user-1", Status: models.RewardPending},
		"rw-2": {ID: "rw-2", UserID: "user-2", Status: models.RewardPending},
	}}
	svc, _ := newRewardServiceForTest(repo, &mockReferralCounter{})

	rewards, _, err := svc.List(context.Background(), customerClaims("user-1"), models.RewardFilter{UserID: "user-2"})

	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "user-1", rewards[0].UserID)
}
