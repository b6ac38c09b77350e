package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// LocalStore is the in-process store. chromem-go holds documents and
// embeddings; a badger index remembers the ids of every collection in
// insertion order, which chromem does not expose.
type LocalStore struct {
	db      *chromem.DB
	index   *badger.DB
	embFunc chromem.EmbeddingFunc
	logger  *zap.Logger
	mu      sync.RWMutex
}

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{1,61}[a-zA-Z0-9]$`)

// NewLocalStore opens the local store. With an empty dataDir everything lives
// in memory and disappears with the process.
func NewLocalStore(dataDir string, embFunc chromem.EmbeddingFunc, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db   *chromem.DB
		opts badger.Options
		err  error
	)
	if dataDir == "" {
		db = chromem.NewDB()
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(filepath.Join(dataDir, "collections"), true)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database: %w", err)
		}
		opts = badger.DefaultOptions(filepath.Join(dataDir, "index"))
	}

	index, err := badger.Open(opts.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open document index: %w", err)
	}

	logger.Info("initialized local store", zap.String("data_dir", dataDir), zap.Bool("in_memory", dataDir == ""))
	return &LocalStore{db: db, index: index, embFunc: embFunc, logger: logger}, nil
}

// Close closes the document index.
func (s *LocalStore) Close() error {
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// ListCollections returns collection names sorted by name.
func (s *LocalStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetCollection returns a handle for an existing collection.
func (s *LocalStore) GetCollection(_ context.Context, name string) (CollectionHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(name, s.embFunc)
	if col == nil {
		return nil, storeErr("get collection", fmt.Errorf("%q: %w", name, ErrCollectionNotFound))
	}
	return &localCollection{store: s, col: col}, nil
}

// CreateCollection creates a collection. chromem silently replaces an
// existing collection, so duplicates are rejected here.
func (s *LocalStore) CreateCollection(_ context.Context, name string) error {
	if err := validateCollectionName(name); err != nil {
		return storeErr("create collection", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, s.embFunc) != nil {
		return storeErr("create collection", fmt.Errorf("%q: %w", name, ErrCollectionExists))
	}
	// ids left behind by an interrupted delete must not leak into the new collection
	if err := s.index.DropPrefix(collectionPrefix(name)); err != nil {
		return storeErr("create collection", fmt.Errorf("failed to reset index: %w", err))
	}
	if _, err := s.db.CreateCollection(name, nil, s.embFunc); err != nil {
		return storeErr("create collection", err)
	}

	s.logger.Info("created collection", zap.String("collection", name))
	return nil
}

// DeleteCollection removes the collection and its index entries.
func (s *LocalStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, s.embFunc) == nil {
		return storeErr("delete collection", fmt.Errorf("%q: %w", name, ErrCollectionNotFound))
	}
	// Index first: a failure here leaves the collection whole and listed.
	if err := s.index.DropPrefix(collectionPrefix(name)); err != nil {
		return storeErr("delete collection", fmt.Errorf("failed to drop index: %w", err))
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return storeErr("delete collection", err)
	}

	s.logger.Info("deleted collection", zap.String("collection", name))
	return nil
}

// validateCollectionName applies the naming rules of the Chroma server.
func validateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q: expected 3-63 characters of [a-zA-Z0-9._-], starting and ending with a letter or digit", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid collection name %q: must not contain two consecutive periods", name)
	}
	return nil
}

// Index layout:
//
//	c/<name>/seq       next sequence number
//	c/<name>/d/<seq>   document id, iterated in insertion order
//	c/<name>/i/<id>    presence marker for duplicate detection
func collectionPrefix(name string) []byte { return []byte("c/" + name + "/") }

func seqKey(name string) []byte { return append(collectionPrefix(name), "seq"...) }

func orderPrefix(name string) []byte { return append(collectionPrefix(name), "d/"...) }

func orderKey(name string, seq uint64) []byte {
	key := orderPrefix(name)
	return binary.BigEndian.AppendUint64(key, seq)
}

func idKey(name, id string) []byte { return append(collectionPrefix(name), "i/"+id...) }

type localCollection struct {
	store *LocalStore
	col   *chromem.Collection
}

func (c *localCollection) Name() string { return c.col.Name }

// Get returns all documents in insertion order.
func (c *localCollection) Get(ctx context.Context) (GetResult, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var ids []string
	err := c.store.index.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = orderPrefix(c.col.Name)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GetResult{}, storeErr("get documents", err)
	}

	result := GetResult{
		IDs:       make([]string, 0, len(ids)),
		Documents: make([]string, 0, len(ids)),
		Metadatas: make([]Metadata, 0, len(ids)),
	}
	for _, id := range ids {
		doc, err := c.col.GetByID(ctx, id)
		if err != nil {
			return GetResult{}, storeErr("get documents", fmt.Errorf("document %q: %w", id, err))
		}
		meta := Metadata{}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		result.IDs = append(result.IDs, doc.ID)
		result.Documents = append(result.Documents, doc.Content)
		result.Metadatas = append(result.Metadatas, meta)
	}
	return result, nil
}

// Add embeds and stores the documents, then records their ids in the index.
func (c *localCollection) Add(ctx context.Context, ids, documents []string, metadatas []Metadata) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return storeErr("add documents", fmt.Errorf("got %d ids, %d documents and %d metadatas", len(ids), len(documents), len(metadatas)))
	}
	if len(ids) == 0 {
		return nil
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	name := c.col.Name
	seen := make(map[string]bool, len(ids))
	err := c.store.index.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if id == "" {
				return errors.New("document id is empty")
			}
			if seen[id] {
				return fmt.Errorf("%q: %w", id, ErrDocumentExists)
			}
			seen[id] = true
			_, err := txn.Get(idKey(name, id))
			if err == nil {
				return fmt.Errorf("%q: %w", id, ErrDocumentExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("add documents", err)
	}

	docs := make([]chromem.Document, len(ids))
	for i := range ids {
		meta := make(map[string]string, len(metadatas[i]))
		for k, v := range metadatas[i] {
			meta[k] = v
		}
		docs[i] = chromem.Document{ID: ids[i], Content: documents[i], Metadata: meta}
	}
	if err := c.col.AddDocuments(ctx, docs, 1); err != nil {
		return storeErr("add documents", err)
	}

	err = c.store.index.Update(func(txn *badger.Txn) error {
		var next uint64
		item, err := txn.Get(seqKey(name))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				next = binary.BigEndian.Uint64(val)
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		for _, id := range ids {
			if err := txn.Set(orderKey(name, next), []byte(id)); err != nil {
				return err
			}
			if err := txn.Set(idKey(name, id), nil); err != nil {
				return err
			}
			next++
		}
		return txn.Set(seqKey(name), binary.BigEndian.AppendUint64(nil, next))
	})
	if err != nil {
		// keep chromem and the index consistent
		if delErr := c.col.Delete(ctx, nil, nil, ids...); delErr != nil {
			c.store.logger.Warn("failed to roll back documents", zap.String("collection", name), zap.Error(delErr))
		}
		return storeErr("add documents", fmt.Errorf("failed to update index: %w", err))
	}

	c.store.logger.Debug("added documents", zap.String("collection", name), zap.Int("count", len(ids)))
	return nil
}
