package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/models"
)

func newKYCRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestKYCRepositoryFindByUser(t *testing.T) {
	db, mock, cleanup := newKYCRepoMock(t)
	defer cleanup()
	repo := NewKYCRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "document_type", "document_ref", "status", "remarks", "reviewed_by", "reviewed_at", "submitted_at", "updated_at"}).
		AddRow("kyc-1", "user-1", models.KYCDocumentPassport, "files/passport.jpg", models.KYCSubmitted, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, document_type, document_ref, status, remarks, reviewed_by, reviewed_at, submitted_at, updated_at FROM kyc_records WHERE user_id = $1 LIMIT 1")).
		WithArgs("user-1").
		WillReturnRows(rows)

	record, err := repo.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, models.KYCSubmitted, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKYCRepositoryApplyVerdict(t *testing.T) {
	db, mock, cleanup := newKYCRepoMock(t)
	defer cleanup()
	repo := NewKYCRepository(db)

	remarks := "ID legible, face match"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE kyc_records SET status = $2, remarks = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1")).
		WithArgs("kyc-1", models.KYCVerified, &remarks, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kyc_reviews (id, kyc_id, previous_status, new_status, remarks, reviewed_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(sqlmock.AnyArg(), "kyc-1", models.KYCSubmitted, models.KYCVerified, &remarks, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyVerdict(context.Background(), &models.KYCReview{
		KYCID:          "kyc-1",
		PreviousStatus: models.KYCSubmitted,
		NewStatus:      models.KYCVerified,
		Remarks:        &remarks,
		ReviewedBy:     "admin-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKYCRepositoryResubmit(t *testing.T) {
	db, mock, cleanup := newKYCRepoMock(t)
	defer cleanup()
	repo := NewKYCRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE kyc_records SET document_type = $2, document_ref = $3, status = 'SUBMITTED', remarks = NULL, reviewed_by = NULL, reviewed_at = NULL, submitted_at = $4, updated_at = $4 WHERE id = $1")).
		WithArgs("kyc-1", models.KYCDocumentNationalID, "files/national-id.jpg", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Resubmit(context.Background(), "kyc-1", models.KYCDocumentNationalID, "files/national-id.jpg")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
