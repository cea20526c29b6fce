// Package universe manages worldbuilding folders and the upload contract
// for the files they hold. File bytes never pass through this backend;
// clients upload against short-lived presigned URLs.
package universe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"owing/backend/internal/store"
	"owing/backend/pkg/errors"
	"owing/backend/pkg/logger"
)

// UploadURLExpiry bounds how long a presigned upload URL stays valid
const UploadURLExpiry = 2 * time.Minute

// ObjectStorage issues presigned upload URLs. Implementations wrap a
// cloud object store; the URL must expire after roughly UploadURLExpiry.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// FolderStore is the relational surface, satisfied by *store.Store
type FolderStore interface {
	CreateFolder(ctx context.Context, projectID int64, name string) (*store.UniverseFolder, error)
	GetFolder(ctx context.Context, id int64) (*store.UniverseFolder, error)
	ListFoldersByProject(ctx context.Context, projectID int64) ([]store.UniverseFolder, error)
	SoftDeleteFolder(ctx context.Context, id int64) (bool, error)
}

// Service manages universe folders for a project
type Service struct {
	store   FolderStore
	storage ObjectStorage
	logger  *zap.Logger
}

// NewService creates a universe service. storage may be nil when no
// object store is configured; upload URLs then fail fast.
func NewService(st FolderStore, storage ObjectStorage) *Service {
	return &Service{
		store:   st,
		storage: storage,
		logger:  logger.Get(),
	}
}

// CreateFolder creates a folder under a project
func (s *Service) CreateFolder(ctx context.Context, projectID int64, name string) (*store.UniverseFolder, error) {
	folder, err := s.store.CreateFolder(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("universe folder created",
		zap.Int64("folder_id", folder.ID),
		zap.Int64("project_id", projectID),
	)
	return folder, nil
}

// GetFolder returns a live folder by id
func (s *Service) GetFolder(ctx context.Context, id int64) (*store.UniverseFolder, error) {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, errors.NewFolderNotFound(id)
	}
	return folder, nil
}

// ListFolders returns every live folder of a project
func (s *Service) ListFolders(ctx context.Context, projectID int64) ([]store.UniverseFolder, error) {
	return s.store.ListFoldersByProject(ctx, projectID)
}

// DeleteFolder soft-deletes a folder
func (s *Service) DeleteFolder(ctx context.Context, id int64) error {
	matched, err := s.store.SoftDeleteFolder(ctx, id)
	if err != nil {
		return err
	}
	if !matched {
		return errors.NewFolderNotFound(id)
	}
	return nil
}

// PresignUpload returns a short-lived URL for uploading a file into a
// folder. The folder must exist; the object key scopes the upload to it.
func (s *Service) PresignUpload(ctx context.Context, folderID int64, filename string) (string, error) {
	if s.storage == nil {
		return "", errors.NewStorageNotConfigured()
	}

	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return "", err
	}
	if folder == nil {
		return "", errors.NewFolderNotFound(folderID)
	}

	key := objectKey(folder, filename)
	return s.storage.PresignUpload(ctx, key, UploadURLExpiry)
}
