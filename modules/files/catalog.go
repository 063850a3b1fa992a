package files

import (
	"context"

	"github.com/google/uuid"
)

// Catalog is the capability boundary for file metadata persistence.
//
// Mutations are scoped by owner inside a single atomic update: a non-owner
// caller observes ErrFileNotFound, and concurrent edits to the same record
// resolve last-writer-wins without lost updates.
type Catalog interface {
	Create(ctx context.Context, record *FileRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*FileRecord, error)

	// FindByOwner lists records owned by ownerID, newest first.
	// A non-empty kind narrows the listing.
	FindByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind) ([]FileRecord, error)

	// FindSharedWith lists records whose share list contains email, newest first.
	FindSharedWith(ctx context.Context, email string, kind Kind) ([]FileRecord, error)

	Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*FileRecord, error)
	UpdateShareList(ctx context.Context, id, ownerID uuid.UUID, add, remove []string) (*FileRecord, error)

	// Delete removes the record and returns it so the caller can clean up
	// the backing blob.
	Delete(ctx context.Context, id, ownerID uuid.UUID) (*FileRecord, error)
}
