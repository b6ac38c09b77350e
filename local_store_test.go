package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T, dataDir string) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(dataDir, makeHashEmbedder(EmbeddingDimension), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLocalStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.CreateCollection(ctx, "zeta"))
	require.NoError(t, store.CreateCollection(ctx, "alpha"))

	names, err = store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestLocalStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")

	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, []string{"1"}, []string{"keep me"}, []Metadata{{}}))

	err = store.CreateCollection(ctx, "notes")
	assert.True(t, errors.Is(err, ErrCollectionExists))

	// the existing collection is untouched
	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep me"}, res.Documents)
}

func TestLocalStoreCollectionNames(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")

	tests := []struct {
		name  string
		valid bool
	}{
		{name: "notes", valid: true},
		{name: "my-docs_2024.v1", valid: true},
		{name: "abc", valid: true},
		{name: "ab", valid: false},
		{name: "-notes", valid: false},
		{name: "notes.", valid: false},
		{name: "my..docs", valid: false},
		{name: "with space", valid: false},
		{name: fmt.Sprintf("a%063d", 0), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateCollection(ctx, tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var se *StoreError
				assert.True(t, errors.As(err, &se))
			}
		})
	}
}

func TestLocalStoreGetMissingCollection(t *testing.T) {
	store := newTestLocalStore(t, "")

	_, err := store.GetCollection(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))

	err = store.DeleteCollection(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
}

func TestLocalCollectionInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)

	ids := []string{"zz", "aa", "mm"}
	for i, id := range ids {
		meta := Metadata{}
		if i == 1 {
			meta["source"] = "web"
		}
		require.NoError(t, col.Add(ctx, []string{id}, []string{"doc " + id}, []Metadata{meta}))
	}

	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, res.IDs)
	assert.Equal(t, []string{"doc zz", "doc aa", "doc mm"}, res.Documents)
	assert.Equal(t, Metadata{}, res.Metadatas[0])
	assert.Equal(t, Metadata{"source": "web"}, res.Metadatas[1])
}

func TestLocalCollectionAddRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)

	require.NoError(t, col.Add(ctx, []string{"1"}, []string{"one"}, []Metadata{{}}))

	err = col.Add(ctx, []string{"1"}, []string{"again"}, []Metadata{{}})
	assert.True(t, errors.Is(err, ErrDocumentExists))

	err = col.Add(ctx, []string{"2", "2"}, []string{"a", "b"}, []Metadata{{}, {}})
	assert.True(t, errors.Is(err, ErrDocumentExists))

	err = col.Add(ctx, []string{""}, []string{"no id"}, []Metadata{{}})
	assert.Error(t, err)

	err = col.Add(ctx, []string{"3"}, []string{"a", "b"}, []Metadata{{}})
	assert.Error(t, err)

	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
	assert.Equal(t, []string{"one"}, res.Documents)
}

func TestLocalStoreDeleteDropsIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, []string{"1"}, []string{"old"}, []Metadata{{}}))

	require.NoError(t, store.DeleteCollection(ctx, "notes"))
	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	// a recreated collection starts empty and accepts the old id again
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err = store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.NoError(t, col.Add(ctx, []string{"1"}, []string{"new"}, []Metadata{{}}))
}

func TestLocalStoreDeleteKeepsCollectionWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore("", makeHashEmbedder(EmbeddingDimension), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	require.NoError(t, store.index.Close())

	err = store.DeleteCollection(ctx, "notes")
	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "failed to drop index")

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, names)
}

func TestLocalStoreCreateResetsLeftoverIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t, "")
	require.NoError(t, store.index.Update(func(txn *badger.Txn) error {
		if err := txn.Set(orderKey("notes", 0), []byte("ghost")); err != nil {
			return err
		}
		return txn.Set(idKey("notes", "ghost"), nil)
	}))

	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.NoError(t, col.Add(ctx, []string{"ghost"}, []string{"real"}, []Metadata{{}}))
}

func TestLocalStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewLocalStore(dir, makeHashEmbedder(EmbeddingDimension), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, "notes"))
	col, err := store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, []string{"a", "b"}, []string{"first", "second"}, []Metadata{{}, {"k": "v"}}))
	require.NoError(t, store.Close())

	reopened := newTestLocalStore(t, dir)
	names, err := reopened.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, names)

	col, err = reopened.GetCollection(ctx, "notes")
	require.NoError(t, err)
	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.IDs)
	assert.Equal(t, Metadata{"k": "v"}, res.Metadatas[1])
}
