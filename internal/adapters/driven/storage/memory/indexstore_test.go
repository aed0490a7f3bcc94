package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

func chunk(id, docID string) domain.Chunk {
	return domain.Chunk{ID: id, DocumentID: docID, Content: id, Embedding: []float32{1, 0}}
}

func TestIndexStore_ApplyAndLoad(t *testing.T) {
	store := NewIndexStore("/idx")
	ctx := context.Background()

	err := store.ApplyChanges(ctx, driven.ChangeSet{
		Documents: []domain.Document{{ID: "d1"}, {ID: "d2"}},
		Upserts:   []domain.Chunk{chunk("a", "d1"), chunk("b", "d2"), chunk("c", "d1")},
	})
	require.NoError(t, err)

	chunks, err := store.LoadChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{chunks[0].ID, chunks[1].ID, chunks[2].ID})
	assert.Equal(t, 1, store.Applies())
	assert.Equal(t, "/idx", store.Path())
}

func TestIndexStore_DeleteDocumentCascades(t *testing.T) {
	store := NewIndexStore("/idx")
	ctx := context.Background()

	require.NoError(t, store.ApplyChanges(ctx, driven.ChangeSet{
		Documents: []domain.Document{{ID: "d1"}, {ID: "d2"}},
		Upserts:   []domain.Chunk{chunk("a", "d1"), chunk("b", "d2")},
	}))
	require.NoError(t, store.ApplyChanges(ctx, driven.ChangeSet{DeleteDocuments: []string{"d1"}}))

	chunks, _ := store.LoadChunks(ctx)
	require.Len(t, chunks, 1)
	assert.Equal(t, "b", chunks[0].ID)

	docs, _ := store.ListDocuments(ctx)
	require.Len(t, docs, 1)
	assert.Equal(t, "d2", docs[0].ID)
}

func TestIndexStore_FailApplies(t *testing.T) {
	store := NewIndexStore("/idx")
	ctx := context.Background()
	boom := errors.New("disk full")

	store.FailApplies(boom)
	err := store.ApplyChanges(ctx, driven.ChangeSet{Upserts: []domain.Chunk{chunk("a", "d1")}})
	assert.ErrorIs(t, err, boom)

	chunks, _ := store.LoadChunks(ctx)
	assert.Empty(t, chunks)

	store.FailApplies(nil)
	assert.NoError(t, store.ApplyChanges(ctx, driven.ChangeSet{Upserts: []domain.Chunk{chunk("a", "d1")}}))
}

func TestIndexStore_Config(t *testing.T) {
	store := NewIndexStore("/idx")
	ctx := context.Background()

	cfg, err := store.GetConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, store.SaveConfig(ctx, domain.IndexConfig{WindowSize: 2}))
	cfg, err = store.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.WindowSize)
}

func TestIndexStoreFactory_ReopenKeepsState(t *testing.T) {
	factory := NewIndexStoreFactory()
	ctx := context.Background()

	store, err := factory.Open(ctx, "/idx/a")
	require.NoError(t, err)
	require.NoError(t, store.ApplyChanges(ctx, driven.ChangeSet{
		Documents: []domain.Document{{ID: "d1"}},
		Upserts:   []domain.Chunk{chunk("a", "d1")},
	}))
	require.NoError(t, store.Close())

	reopened, err := factory.Open(ctx, "/idx/a")
	require.NoError(t, err)
	chunks, _ := reopened.LoadChunks(ctx)
	assert.Len(t, chunks, 1)

	require.NoError(t, factory.Remove("/idx/a"))
	fresh, err := factory.Open(ctx, "/idx/a")
	require.NoError(t, err)
	chunks, _ = fresh.LoadChunks(ctx)
	assert.Empty(t, chunks)
	assert.Equal(t, []string{"/idx/a"}, factory.Removed())
}

func TestIndexStoreFactory_FailOpen(t *testing.T) {
	factory := NewIndexStoreFactory()
	factory.FailOpen("/idx/bad", domain.ErrStorageCorrupt)

	_, err := factory.Open(context.Background(), "/idx/bad")
	assert.ErrorIs(t, err, domain.ErrStorageCorrupt)
}
