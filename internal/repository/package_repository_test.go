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

func newPackageRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPackageRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newPackageRepoMock(t)
	defer cleanup()
	repo := NewPackageRepository(db)

	rows := sqlmock.NewRows([]string{"id", "registration_id", "package_type", "status", "description", "received_at", "release_address_id", "proxy_name", "proxy_mobile", "updated_at"}).
		AddRow("pkg-1", "reg-1", models.PackageTypeParcel, models.StatusStored, "shoes", time.Now(), nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, registration_id, package_type, status, description, received_at, release_address_id, proxy_name, proxy_mobile, updated_at FROM packages WHERE id = $1 LIMIT 1")).
		WithArgs("pkg-1").
		WillReturnRows(rows)

	pkg, err := repo.FindByID(context.Background(), "pkg-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusStored, pkg.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newPackageRepoMock(t)
	defer cleanup()
	repo := NewPackageRepository(db)

	addressID := "addr-1"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE packages SET status = $3, release_address_id = $4, proxy_name = $5, proxy_mobile = $6, updated_at = $7 WHERE id = $1 AND status = $2")).
		WithArgs("pkg-1", models.StatusStored, models.StatusRequestToRelease, &addressID, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO package_status_events (id, package_id, from_status, to_status, action, actor_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(sqlmock.AnyArg(), "pkg-1", models.StatusStored, models.StatusRequestToRelease, "request_release", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), TransitionParams{
		PackageID:  "pkg-1",
		FromStatus: models.StatusStored,
		ToStatus:   models.StatusRequestToRelease,
		Action:     "request_release",
		ActorID:    "user-1",
		AddressID:  &addressID,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageRepositoryTransitionStaleStatus(t *testing.T) {
	db, mock, cleanup := newPackageRepoMock(t)
	defer cleanup()
	repo := NewPackageRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE packages SET status = $3, release_address_id = $4, proxy_name = $5, proxy_mobile = $6, updated_at = $7 WHERE id = $1 AND status = $2")).
		WithArgs("pkg-1", models.StatusStored, models.StatusRequestToDispose, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		PackageID:  "pkg-1",
		FromStatus: models.StatusStored,
		ToStatus:   models.StatusRequestToDispose,
		Action:     "request_dispose",
		ActorID:    "user-1",
	})
	require.ErrorIs(t, err, ErrStaleStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageRepositoryCountScanFiles(t *testing.T) {
	db, mock, cleanup := newPackageRepoMock(t)
	defer cleanup()
	repo := NewPackageRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(7)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM package_files pf JOIN packages p ON p.id = pf.package_id WHERE p.registration_id = $1 AND pf.kind = 'SCAN'")).
		WithArgs("reg-1").
		WillReturnRows(rows)

	count, err := repo.CountScanFiles(context.Background(), "reg-1")
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
