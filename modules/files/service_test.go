package files_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekeep/modules/files"
	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/objstore"
	"github.com/dmitrymomot/storekeep/pkg/validator"
)

func testUser(email string) *identity.User {
	return &identity.User{
		ID:        uuid.New(),
		FullName:  "Test User",
		Email:     email,
		CreatedAt: time.Now(),
	}
}

func upload(t *testing.T, svc *files.Service, owner *identity.User, name, content string) *files.FileRecord {
	t.Helper()
	record, err := svc.Upload(context.Background(), owner, name, int64(len(content)), "text/plain", strings.NewReader(content))
	require.NoError(t, err)
	return record
}

func TestService_Upload(t *testing.T) {
	t.Parallel()

	t.Run("stores blob and record", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		store := newMockStore()
		svc := files.NewService(catalog, store)
		alice := testUser("alice@example.com")

		record := upload(t, svc, alice, "report.pdf", "pdf bytes")
		assert.Equal(t, alice.ID, record.OwnerID)
		assert.Equal(t, files.KindDocument, record.Kind)
		assert.Equal(t, "pdf", record.Extension)
		assert.Equal(t, int64(len("pdf bytes")), record.SizeBytes)
		assert.True(t, store.Exists(context.Background(), record.StorageKey))

		listed, err := svc.ListOwned(context.Background(), alice, "")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "report.pdf", listed[0].Name)
	})

	t.Run("oversize rejected before any bytes reach the store", func(t *testing.T) {
		t.Parallel()

		store := newMockStore()
		svc := files.NewService(newMockCatalog(), store, files.WithMaxFileSize(10))
		alice := testUser("alice@example.com")

		_, err := svc.Upload(context.Background(), alice, "big.bin", 11, "application/octet-stream", strings.NewReader("0123456789a"))
		assert.ErrorIs(t, err, files.ErrFileTooLarge)
		assert.Zero(t, store.putCalls)

		listed, err := svc.ListOwned(context.Background(), alice, "")
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("catalog failure compensates with blob deletion", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		catalog.failCreate = assert.AnError
		store := newMockStore()
		svc := files.NewService(catalog, store)

		_, err := svc.Upload(context.Background(), testUser("alice@example.com"), "a.txt", 3, "text/plain", strings.NewReader("abc"))
		assert.ErrorIs(t, err, files.ErrUploadIncomplete)
		assert.Zero(t, store.objectCount(), "orphaned blob must be cleaned up")
	})

	t.Run("store failure leaves no catalog record", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		store := newMockStore()
		store.failPut = assert.AnError
		svc := files.NewService(catalog, store)
		alice := testUser("alice@example.com")

		_, err := svc.Upload(context.Background(), alice, "a.txt", 3, "text/plain", strings.NewReader("abc"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, files.ErrUploadIncomplete, "a failed put is retryable as-is, not a partial upload")

		listed, err := svc.ListOwned(context.Background(), alice, "")
		require.NoError(t, err)
		assert.Empty(t, listed, "no record may exist for an upload that never landed")
	})

	t.Run("path traversal name sanitized", func(t *testing.T) {
		t.Parallel()

		svc := files.NewService(newMockCatalog(), newMockStore())

		record := upload(t, svc, testUser("alice@example.com"), "../../etc/passwd", "x")
		assert.Equal(t, "passwd", record.Name)
	})
}

func TestService_Download(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	store := newMockStore()
	svc := files.NewService(catalog, store)
	alice := testUser("alice@example.com")
	bob := testUser("bob@example.com")
	eve := testUser("eve@example.com")

	record := upload(t, svc, alice, "shared.txt", "hello")
	_, err := svc.UpdateShares(context.Background(), alice, record.ID, []string{bob.Email}, nil)
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		t.Parallel()

		_, stream, err := svc.Download(context.Background(), alice, record.ID)
		require.NoError(t, err)
		defer stream.Close()
		data, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("share member", func(t *testing.T) {
		t.Parallel()

		_, stream, err := svc.Download(context.Background(), bob, record.ID)
		require.NoError(t, err)
		stream.Close()
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		t.Parallel()

		_, _, err := svc.Download(context.Background(), eve, record.ID)
		assert.ErrorIs(t, err, files.ErrFileNotFound)
	})
}

func TestService_Authorization(t *testing.T) {
	t.Parallel()

	newShared := func(t *testing.T) (*files.Service, *identity.User, *identity.User, *files.FileRecord) {
		t.Helper()
		svc := files.NewService(newMockCatalog(), newMockStore())
		alice := testUser("alice@example.com")
		bob := testUser("bob@example.com")
		record := upload(t, svc, alice, "doc.txt", "content")
		_, err := svc.UpdateShares(context.Background(), alice, record.ID, []string{bob.Email}, nil)
		require.NoError(t, err)
		return svc, alice, bob, record
	}

	t.Run("sharing grants read, not mutation", func(t *testing.T) {
		t.Parallel()

		svc, _, bob, record := newShared(t)
		ctx := context.Background()

		_, err := svc.Rename(ctx, bob, record.ID, "renamed.txt")
		assert.ErrorIs(t, err, files.ErrFileNotFound)

		err = svc.Delete(ctx, bob, record.ID)
		assert.ErrorIs(t, err, files.ErrFileNotFound)

		_, err = svc.UpdateShares(ctx, bob, record.ID, []string{"eve@example.com"}, nil)
		assert.ErrorIs(t, err, files.ErrFileNotFound)
	})

	t.Run("shared listing follows share list", func(t *testing.T) {
		t.Parallel()

		svc, alice, bob, record := newShared(t)
		ctx := context.Background()

		shared, err := svc.ListShared(ctx, bob, "")
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, record.ID, shared[0].ID)

		_, err = svc.UpdateShares(ctx, alice, record.ID, nil, []string{bob.Email})
		require.NoError(t, err)

		shared, err = svc.ListShared(ctx, bob, "")
		require.NoError(t, err)
		assert.Empty(t, shared)
	})

	t.Run("owner listing excludes other owners", func(t *testing.T) {
		t.Parallel()

		svc, _, bob, _ := newShared(t)

		owned, err := svc.ListOwned(context.Background(), bob, "")
		require.NoError(t, err)
		assert.Empty(t, owned)
	})
}

func TestService_UpdateShares_Validation(t *testing.T) {
	t.Parallel()

	svc := files.NewService(newMockCatalog(), newMockStore())
	alice := testUser("alice@example.com")
	record := upload(t, svc, alice, "doc.txt", "content")

	_, err := svc.UpdateShares(context.Background(), alice, record.ID, []string{"not-an-email"}, nil)
	assert.True(t, validator.IsValidationError(err))
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes record and blob", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		store := newMockStore()
		svc := files.NewService(catalog, store)
		alice := testUser("alice@example.com")
		record := upload(t, svc, alice, "doc.txt", "content")
		ctx := context.Background()

		require.NoError(t, svc.Delete(ctx, alice, record.ID))

		_, _, err := store.Get(ctx, record.StorageKey)
		assert.ErrorIs(t, err, objstore.ErrObjectNotFound)
		_, err = catalog.GetByID(ctx, record.ID)
		assert.ErrorIs(t, err, files.ErrFileNotFound)
	})

	t.Run("blob delete retried once", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		store := newMockStore()
		svc := files.NewService(catalog, store)
		alice := testUser("alice@example.com")
		record := upload(t, svc, alice, "doc.txt", "content")

		store.mu.Lock()
		store.failDeletes = 1
		store.mu.Unlock()

		require.NoError(t, svc.Delete(context.Background(), alice, record.ID))
		assert.Zero(t, store.objectCount())
	})

	t.Run("surviving blob reported, record still gone", func(t *testing.T) {
		t.Parallel()

		catalog := newMockCatalog()
		store := newMockStore()
		svc := files.NewService(catalog, store)
		alice := testUser("alice@example.com")
		record := upload(t, svc, alice, "doc.txt", "content")

		store.mu.Lock()
		store.failDeletes = 2
		store.mu.Unlock()

		err := svc.Delete(context.Background(), alice, record.ID)
		assert.ErrorIs(t, err, files.ErrFileCleanupIncomplete)

		_, err = catalog.GetByID(context.Background(), record.ID)
		assert.ErrorIs(t, err, files.ErrFileNotFound)
	})
}

func TestService_TypeFilter(t *testing.T) {
	t.Parallel()

	svc := files.NewService(newMockCatalog(), newMockStore())
	alice := testUser("alice@example.com")
	upload(t, svc, alice, "a.pdf", "1")
	upload(t, svc, alice, "b.png", "2")
	upload(t, svc, alice, "c.mp3", "3")

	docs, err := svc.ListOwned(context.Background(), alice, files.KindDocument)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Name)

	all, err := svc.ListOwned(context.Background(), alice, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
