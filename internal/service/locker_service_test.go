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

type mockLockerRepo struct {
	lockers     map[string]models.Locker
	assignments map[string]models.LockerAssignment
	counts      map[string]int
	assignErr   error
	assigned    *models.LockerAssignment
	released    []string
}

func (m *mockLockerRepo) FindByID(ctx context.Context, id string) (*models.Locker, error) {
	if l, ok := m.lockers[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLockerRepo) List(ctx context.Context, filter models.LockerFilter) ([]models.Locker, int, error) {
	var out []models.Locker
	for _, l := range m.lockers {
		out = append(out, l)
	}
	return out, len(out), nil
}

func (m *mockLockerRepo) Assign(ctx context.Context, assignment *models.LockerAssignment) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	if assignment.ID == "" {
		assignment.ID = "new-assignment"
	}
	m.assigned = assignment
	return nil
}

func (m *mockLockerRepo) Unassign(ctx context.Context, assignmentID string) error {
	if _, ok := m.assignments[assignmentID]; !ok {
		return sql.ErrNoRows
	}
	m.released = append(m.released, assignmentID)
	return nil
}

func (m *mockLockerRepo) FindAssignment(ctx context.Context, id string) (*models.LockerAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLockerRepo) ListAssignments(ctx context.Context, registrationID string) ([]models.LockerAssignment, error) {
	var out []models.LockerAssignment
	for _, a := range m.assignments {
		if a.RegistrationID == registrationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockLockerRepo) CountAssignments(ctx context.Context, registrationID string) (int, error) {
	return m.counts[registrationID], nil
}

func newLockerServiceForTest(repo *mockLockerRepo, regs *mockRegistrationReader) (*LockerService, *mockAuditTrail) {
	audit := &mockAuditTrail{}
	svc := NewLockerService(repo, regs, audit, nil, nil, LockerLimits{MaxPerRegistration: 3})
	return svc, audit
}

func TestLockerServiceAssign(t *testing.T) {
	repo := &mockLockerRepo{lockers: map[string]models.Locker{
		"lk-1": {ID: "lk-1", LocationID: "loc-1", IsAvailable: true},
	}}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", LocationID: "loc-1", LockerQty: 2, Status: models.RegistrationActive},
	}}
	svc, audit := newLockerServiceForTest(repo, regs)

	assignment, err := svc.Assign(context.Background(), adminClaims("admin-1"), dto.AssignLockerRequest{
		RegistrationID: "reg-1",
		LockerID:       "lk-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "reg-1", assignment.RegistrationID)
	assert.Equal(t, "admin-1", assignment.AssignedBy)
	assert.Len(t, audit.logs, 1)
}

func TestLockerServiceAssignInactiveRegistration(t *testing.T) {
	repo := &mockLockerRepo{}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", Status: models.RegistrationExpired},
	}}
	svc, _ := newLockerServiceForTest(repo, regs)

	_, err := svc.Assign(context.Background(), adminClaims("admin-1"), dto.AssignLockerRequest{
		RegistrationID: "reg-1",
		LockerID:       "lk-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLockerServiceAssignLocationMismatch(t *testing.T) {
	repo := &mockLockerRepo{lockers: map[string]models.Locker{
		"lk-1": {ID: "lk-1", LocationID: "loc-2", IsAvailable: true},
	}}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", LocationID: "loc-1", Status: models.RegistrationActive},
	}}
	svc, _ := newLockerServiceForTest(repo, regs)

	_, err := svc.Assign(context.Background(), adminClaims("admin-1"), dto.AssignLockerRequest{
		RegistrationID: "reg-1",
		LockerID:       "lk-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.assigned)
}

func TestLockerServiceAssignQuotaExhausted(t *testing.T) {
	repo := &mockLockerRepo{
		lockers: map[string]models.Locker{
			"lk-1": {ID: "lk-1", LocationID: "loc-1", IsAvailable: true},
		},
		counts: map[string]int{"reg-1": 2},
	}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", LocationID: "loc-1", LockerQty: 2, Status: models.RegistrationActive},
	}}
	svc, _ := newLockerServiceForTest(repo, regs)

	_, err := svc.Assign(context.Background(), adminClaims("admin-1"), dto.AssignLockerRequest{
		RegistrationID: "reg-1",
		LockerID:       "lk-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLockerServiceAssignLosesRace(t *testing.T) {
	repo := &mockLockerRepo{
		lockers: map[string]models.Locker{
			"lk-1": {ID: "lk-1", LocationID: "loc-1", IsAvailable: true},
		},
		assignErr: repository.ErrLockerClaimed,
	}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", LocationID: "loc-1", LockerQty: 2, Status: models.RegistrationActive},
	}}
	svc, _ := newLockerServiceForTest(repo, regs)

	_, err := svc.Assign(context.Background(), adminClaims("admin-1"), dto.AssignLockerRequest{
		RegistrationID: "reg-1",
		LockerID:       "lk-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLockerUnavailable.Code, appErrors.FromError(err).Code)
}

func TestLockerServiceUnassign(t *testing.T) {
	repo := &mockLockerRepo{assignments: map[string]models.LockerAssignment{
		"as-1": {ID: "as-1", RegistrationID: "reg-1", LockerID: "lk-1"},
	}}
	svc, audit := newLockerServiceForTest(repo, &mockRegistrationReader{})

	err := svc.Unassign(context.Background(), adminClaims("admin-1"), "as-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"as-1"}, repo.released)
	assert.Len(t, audit.logs, 1)
}

func TestLockerServiceUnassignMissing(t *testing.T) {
	svc, _ := newLockerServiceForTest(&mockLockerRepo{}, &mockRegistrationReader{})

	err := svc.Unassign(context.Background(), adminClaims("admin-1"), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLockerServiceAssignmentsOwnership(t *testing.T) {
	repo := &mockLockerRepo{assignments: map[string]models.LockerAssignment{
		"as-1": {ID: "as-1", RegistrationID: "reg-1", LockerID: "lk-1"},
	}}
	regs := &mockRegistrationReader{registrations: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-2", Status: models.RegistrationActive},
	}}
	svc, _ := newLockerServiceForTest(repo, regs)

	_, err := svc.Assignments(context.Background(), customerClaims("user-1"), "reg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	assignments, err := svc.Assignments(context.Background(), customerClaims("user-2"), "reg-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}
