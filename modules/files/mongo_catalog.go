package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const filesCollection = "files"

// MongoCatalog persists file records in MongoDB.
type MongoCatalog struct {
	coll *mongo.Collection
}

// NewMongoCatalog creates a catalog backed by the given database.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{coll: db.Collection(filesCollection)}
}

// EnsureIndexes creates the listing indexes. Call once at startup.
func (c *MongoCatalog) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "shared_with", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}
	return nil
}

type fileDoc struct {
	ID         string    `bson:"_id"`
	OwnerID    string    `bson:"owner_id"`
	Name       string    `bson:"name"`
	Kind       string    `bson:"kind"`
	Extension  string    `bson:"extension,omitempty"`
	SizeBytes  int64     `bson:"size_bytes"`
	StorageKey string    `bson:"storage_key"`
	SharedWith []string  `bson:"shared_with"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toFileDoc(r *FileRecord) fileDoc {
	shared := r.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return fileDoc{
		ID:         r.ID.String(),
		OwnerID:    r.OwnerID.String(),
		Name:       r.Name,
		Kind:       string(r.Kind),
		Extension:  r.Extension,
		SizeBytes:  r.SizeBytes,
		StorageKey: r.StorageKey,
		SharedWith: shared,
		CreatedAt:  r.CreatedAt,
	}
}

func (d fileDoc) toRecord() (*FileRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid file id %q: %w", d.ID, err)
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", d.OwnerID, err)
	}
	shared := d.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return &FileRecord{
		ID:         id,
		OwnerID:    ownerID,
		Name:       d.Name,
		Kind:       Kind(d.Kind),
		Extension:  d.Extension,
		SizeBytes:  d.SizeBytes,
		StorageKey: d.StorageKey,
		SharedWith: shared,
		CreatedAt:  d.CreatedAt,
	}, nil
}

func (c *MongoCatalog) Create(ctx context.Context, record *FileRecord) error {
	if _, err := c.coll.InsertOne(ctx, toFileDoc(record)); err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (c *MongoCatalog) GetByID(ctx context.Context, id uuid.UUID) (*FileRecord, error) {
	var doc fileDoc
	if err := c.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return doc.toRecord()
}

func (c *MongoCatalog) FindByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind) ([]FileRecord, error) {
	filter := bson.M{"owner_id": ownerID.String()}
	if kind != "" {
		filter["kind"] = string(kind)
	}
	return c.find(ctx, filter)
}

func (c *MongoCatalog) FindSharedWith(ctx context.Context, email string, kind Kind) ([]FileRecord, error) {
	filter := bson.M{"shared_with": email}
	if kind != "" {
		filter["kind"] = string(kind)
	}
	return c.find(ctx, filter)
}

func (c *MongoCatalog) find(ctx context.Context, filter bson.M) ([]FileRecord, error) {
	cursor, err := c.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []FileRecord{}
	for cursor.Next(ctx) {
		var doc fileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode file record: %w", err)
		}
		record, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file records: %w", err)
	}
	return records, nil
}

// Rename updates the name in one conditional write. The owner filter makes a
// non-owner caller indistinguishable from a missing file.
func (c *MongoCatalog) Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*FileRecord, error) {
	return c.updateOwned(ctx, id, ownerID, bson.M{"$set": bson.M{"name": newName}})
}

// UpdateShareList applies additions and removals atomically via $addToSet and
// $pull, so concurrent share edits merge instead of overwriting each other.
func (c *MongoCatalog) UpdateShareList(ctx context.Context, id, ownerID uuid.UUID, add, remove []string) (*FileRecord, error) {
	record := &FileRecord{}
	var err error
	if len(add) > 0 {
		record, err = c.updateOwned(ctx, id, ownerID,
			bson.M{"$addToSet": bson.M{"shared_with": bson.M{"$each": add}}})
		if err != nil {
			return nil, err
		}
	}
	if len(remove) > 0 {
		record, err = c.updateOwned(ctx, id, ownerID,
			bson.M{"$pull": bson.M{"shared_with": bson.M{"$in": remove}}})
		if err != nil {
			return nil, err
		}
	}
	if len(add) == 0 && len(remove) == 0 {
		return c.getOwned(ctx, id, ownerID)
	}
	return record, nil
}

func (c *MongoCatalog) Delete(ctx context.Context, id, ownerID uuid.UUID) (*FileRecord, error) {
	var doc fileDoc
	err := c.coll.FindOneAndDelete(ctx,
		bson.M{"_id": id.String(), "owner_id": ownerID.String()},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to delete file record: %w", err)
	}
	return doc.toRecord()
}

func (c *MongoCatalog) updateOwned(ctx context.Context, id, ownerID uuid.UUID, update bson.M) (*FileRecord, error) {
	var doc fileDoc
	err := c.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "owner_id": ownerID.String()},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to update file record: %w", err)
	}
	return doc.toRecord()
}

func (c *MongoCatalog) getOwned(ctx context.Context, id, ownerID uuid.UUID) (*FileRecord, error) {
	var doc fileDoc
	err := c.coll.FindOne(ctx,
		bson.M{"_id": id.String(), "owner_id": ownerID.String()},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return doc.toRecord()
}
