package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/storage"
)

type filePackageRepository interface {
	FindFileByID(ctx context.Context, id string) (*models.PackageFile, error)
	FindOwner(ctx context.Context, packageID string) (string, error)
}

// SignedFileLink is a time-limited download reference.
type SignedFileLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileDownload carries an open file handle plus serving metadata. The
// caller owns closing the handle.
type FileDownload struct {
	File     *os.File
	MimeType string
	Name     string
}

// FileService issues signed download tokens for package media and
// redeems them against local storage.
type FileService struct {
	packages filePackageRepository
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
}

// NewFileService constructs a FileService instance.
func NewFileService(packages filePackageRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{packages: packages, store: store, signer: signer, logger: logger}
}

// Sign issues a download token for a package file. Customers may only
// sign files on their own packages.
func (s *FileService) Sign(ctx context.Context, claims *models.JWTClaims, fileID string) (*SignedFileLink, error) {
	file, err := s.packages.FindFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file record")
	}

	if claims.Role == models.RoleCustomer {
		ownerID, err := s.packages.FindOwner(ctx, file.PackageID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve file owner")
		}
		if ownerID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "file belongs to another customer")
		}
	}

	token, expiresAt, err := s.signer.Generate(file.ID, file.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &SignedFileLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Redeem validates a download token and opens the underlying file.
// Tokens are self-authorizing; an expired or tampered token is refused.
func (s *FileService) Redeem(ctx context.Context, token string) (*FileDownload, error) {
	fileID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	record, err := s.packages.FindFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file record")
	}
	if record.Path != relPath {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match the stored file")
	}

	handle, err := s.store.Open(record.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file is missing from storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}

	return &FileDownload{File: handle, MimeType: record.MimeType, Name: record.Path}, nil
}
