package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/logger"
	"github.com/dmitrymomot/storekeep/pkg/objstore"
	"github.com/dmitrymomot/storekeep/pkg/sanitizer"
	"github.com/dmitrymomot/storekeep/pkg/validator"
)

// Config holds file service settings.
type Config struct {
	// MaxFileSize caps a single upload, in bytes. 50 MiB by default.
	MaxFileSize int64 `env:"FILES_MAX_SIZE" envDefault:"52428800"`
}

// Service is the access control gate in front of the catalog and the object
// store. Every method takes the authenticated user and enforces ownership or
// share membership before touching either backend.
type Service struct {
	catalog     Catalog
	store       objstore.Store
	log         *slog.Logger
	maxFileSize int64
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxFileSize caps a single upload, in bytes.
func WithMaxFileSize(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxFileSize = limit
		}
	}
}

// NewService creates a file service with default settings.
func NewService(catalog Catalog, store objstore.Store, opts ...Option) *Service {
	s := &Service{
		catalog:     catalog,
		store:       store,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFileSize: 50 << 20,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewServiceFromConfig creates a file service from environment config.
func NewServiceFromConfig(cfg Config, catalog Catalog, store objstore.Store, opts ...Option) *Service {
	return NewService(catalog, store, append([]Option{WithMaxFileSize(cfg.MaxFileSize)}, opts...)...)
}

// MaxFileSize returns the configured upload cap in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Upload validates the declared size, streams the body to the object store,
// then writes the catalog record. If the catalog write fails after the blob
// landed, the blob is deleted and the caller gets a retryable
// ErrUploadIncomplete instead of a phantom success.
func (s *Service) Upload(ctx context.Context, owner *identity.User, name string, size int64, contentType string, body io.Reader) (*FileRecord, error) {
	name = sanitizer.SanitizeFilename(name)
	if err := validator.Apply(
		validator.RequiredString("name", name),
		validator.MaxLenString("name", name, 255),
	); err != nil {
		return nil, err
	}
	if size <= 0 || size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, maximum %d", ErrFileTooLarge, size, s.maxFileSize)
	}

	kind, ext := ClassifyName(name)
	record := &FileRecord{
		ID:         uuid.New(),
		OwnerID:    owner.ID,
		Name:       name,
		Kind:       kind,
		Extension:  ext,
		SizeBytes:  size,
		StorageKey: storageKey(owner.ID, ext),
		SharedWith: []string{},
		CreatedAt:  time.Now(),
	}

	if err := s.store.Put(ctx, record.StorageKey, body, size, contentType); err != nil {
		if errors.Is(err, objstore.ErrObjectTooLarge) {
			return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
		}
		return nil, err
	}

	if err := s.catalog.Create(ctx, record); err != nil {
		if delErr := s.store.Delete(ctx, record.StorageKey); delErr != nil && !errors.Is(delErr, objstore.ErrObjectNotFound) {
			s.log.ErrorContext(ctx, "orphaned blob left after failed catalog write",
				logger.StorageKey(record.StorageKey),
				logger.UserID(owner.ID.String()),
				logger.Error(delErr),
				logger.Component("files"),
			)
		}
		return nil, errors.Join(ErrUploadIncomplete, err)
	}

	s.log.InfoContext(ctx, "file uploaded",
		logger.FileID(record.ID.String()),
		logger.UserID(owner.ID.String()),
		slog.Int64("size_bytes", size),
		logger.Component("files"),
	)

	return record, nil
}

// ListOwned returns the user's own files, optionally narrowed by kind.
func (s *Service) ListOwned(ctx context.Context, user *identity.User, kind Kind) ([]FileRecord, error) {
	return s.catalog.FindByOwner(ctx, user.ID, kind)
}

// ListShared returns files shared with the user's email.
func (s *Service) ListShared(ctx context.Context, user *identity.User, kind Kind) ([]FileRecord, error) {
	return s.catalog.FindSharedWith(ctx, user.Email, kind)
}

// Download streams a file the user owns or that is shared with them. The
// caller must close the returned reader.
func (s *Service) Download(ctx context.Context, user *identity.User, fileID uuid.UUID) (*FileRecord, io.ReadCloser, error) {
	record, err := s.catalog.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if record.OwnerID != user.ID && !record.SharedWithEmail(user.Email) {
		return nil, nil, ErrFileNotFound
	}

	stream, _, err := s.store.Get(ctx, record.StorageKey)
	if err != nil {
		if errors.Is(err, objstore.ErrObjectNotFound) {
			// Catalog and store disagree; report and hide the record.
			s.log.ErrorContext(ctx, "catalog record has no backing blob",
				logger.FileID(record.ID.String()),
				logger.StorageKey(record.StorageKey),
				logger.Component("files"),
			)
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}
	return record, stream, nil
}

// Rename changes the file's display name. Owner only.
func (s *Service) Rename(ctx context.Context, user *identity.User, fileID uuid.UUID, newName string) (*FileRecord, error) {
	newName = sanitizer.SanitizeFilename(newName)
	if err := validator.Apply(
		validator.RequiredString("name", newName),
		validator.MaxLenString("name", newName, 255),
	); err != nil {
		return nil, err
	}
	return s.catalog.Rename(ctx, fileID, user.ID, newName)
}

// UpdateShares adds and removes emails on the file's share list. Owner only.
func (s *Service) UpdateShares(ctx context.Context, user *identity.User, fileID uuid.UUID, add, remove []string) (*FileRecord, error) {
	add, err := normalizeEmails("share_add", add)
	if err != nil {
		return nil, err
	}
	remove, err = normalizeEmails("share_remove", remove)
	if err != nil {
		return nil, err
	}
	return s.catalog.UpdateShareList(ctx, fileID, user.ID, add, remove)
}

// Delete removes the catalog record first, then the blob with one retry.
// A blob that survives both attempts is logged and reported as
// ErrFileCleanupIncomplete; the record itself is already gone.
func (s *Service) Delete(ctx context.Context, user *identity.User, fileID uuid.UUID) error {
	record, err := s.catalog.Delete(ctx, fileID, user.ID)
	if err != nil {
		return err
	}

	delErr := s.store.Delete(ctx, record.StorageKey)
	if delErr != nil && !errors.Is(delErr, objstore.ErrObjectNotFound) {
		delErr = s.store.Delete(ctx, record.StorageKey)
	}
	if delErr != nil && !errors.Is(delErr, objstore.ErrObjectNotFound) {
		s.log.ErrorContext(ctx, "blob survived delete and retry",
			logger.FileID(record.ID.String()),
			logger.StorageKey(record.StorageKey),
			logger.Error(delErr),
			logger.Component("files"),
		)
		return errors.Join(ErrFileCleanupIncomplete, delErr)
	}

	s.log.InfoContext(ctx, "file deleted",
		logger.FileID(record.ID.String()),
		logger.UserID(user.ID.String()),
		logger.Component("files"),
	)
	return nil
}

func storageKey(ownerID uuid.UUID, ext string) string {
	key := ownerID.String() + "/" + uuid.NewString()
	if ext != "" {
		key += "." + ext
	}
	return key
}

func normalizeEmails(field string, emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		email = sanitizer.NormalizeEmail(email)
		if err := validator.Apply(validator.ValidEmail(field, email)); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, nil
}
