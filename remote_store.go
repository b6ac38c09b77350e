package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// RemoteStore talks to a Chroma server through the chroma-go v2 client.
type RemoteStore struct {
	client  chroma.Client
	target  string
	ef      embeddings.EmbeddingFunction
	embFunc chromem.EmbeddingFunc
	logger  *zap.Logger
}

// chromemEmbedder lets chroma-go embed with the same function as the local
// store, so it never falls back to its bundled ONNX model.
type chromemEmbedder struct {
	embed chromem.EmbeddingFunc
}

func (e chromemEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	out := make([]embeddings.Embedding, 0, len(texts))
	for _, text := range texts {
		emb, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}

func (e chromemEmbedder) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbeddingFromFloat32(vec), nil
}

// NewRemoteStore connects to the server at conn and checks its heartbeat.
func NewRemoteStore(ctx context.Context, conn ConnectionConfig, opts RemoteOptions, httpClient *http.Client, embFunc chromem.EmbeddingFunc, logger *zap.Logger) (*RemoteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	tenant, database := opts.Tenant, opts.Database
	if tenant == "" {
		tenant = DefaultTenant
	}
	if database == "" {
		database = DefaultDatabase
	}
	scheme := "http"
	if opts.UseTLS {
		scheme = "https"
	}

	target := conn.Address()
	client, err := chroma.NewHTTPClient(
		chroma.WithBaseURL(scheme+"://"+target),
		chroma.WithDatabaseAndTenant(database, tenant),
		chroma.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, &ConnectionError{Target: target, Err: fmt.Errorf("failed to create client: %w", err)}
	}
	if err := client.Heartbeat(ctx); err != nil {
		return nil, &ConnectionError{Target: target, Err: err}
	}

	return &RemoteStore{
		client:  client,
		target:  target,
		ef:      chromemEmbedder{embed: embFunc},
		embFunc: embFunc,
		logger:  logger,
	}, nil
}

// wrap maps client errors onto the store taxonomy. Anything that failed on
// the network is a ConnectionError; the rest is a StoreError for op.
func (rs *RemoteStore) wrap(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Target: rs.target, Err: err}
	}
	rs.logger.Debug("remote store error", zap.String("op", op), zap.Error(err))
	return storeErr(op, err)
}

// missing reports whether name is absent from the server. It is consulted
// after a failed call to tell "not found" apart from other failures.
func (rs *RemoteStore) missing(ctx context.Context, name string) bool {
	names, err := rs.ListCollections(ctx)
	return err == nil && !slices.Contains(names, name)
}

// ListCollections returns collection names in server order.
func (rs *RemoteStore) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := rs.client.ListCollections(ctx)
	if err != nil {
		return nil, rs.wrap("list collections", err)
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name())
	}
	return names, nil
}

// GetCollection returns a handle bound to the server-side collection.
func (rs *RemoteStore) GetCollection(ctx context.Context, name string) (CollectionHandle, error) {
	col, err := rs.client.GetCollection(ctx, name, chroma.WithEmbeddingFunctionGet(rs.ef))
	if err != nil {
		if rs.missing(ctx, name) {
			return nil, storeErr("get collection", fmt.Errorf("%q: %w", name, ErrCollectionNotFound))
		}
		return nil, rs.wrap("get collection", err)
	}
	return &remoteCollectionHandle{store: rs, col: col}, nil
}

// CreateCollection creates a collection. Duplicates are rejected before the
// create call is sent.
func (rs *RemoteStore) CreateCollection(ctx context.Context, name string) error {
	names, err := rs.ListCollections(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, name) {
		return storeErr("create collection", fmt.Errorf("%q: %w", name, ErrCollectionExists))
	}
	if _, err := rs.client.CreateCollection(ctx, name, chroma.WithEmbeddingFunctionCreate(rs.ef)); err != nil {
		return rs.wrap("create collection", err)
	}
	rs.logger.Info("created remote collection", zap.String("collection", name), zap.String("target", rs.target))
	return nil
}

// DeleteCollection removes a collection by name.
func (rs *RemoteStore) DeleteCollection(ctx context.Context, name string) error {
	if err := rs.client.DeleteCollection(ctx, name); err != nil {
		if rs.missing(ctx, name) {
			return storeErr("delete collection", fmt.Errorf("%q: %w", name, ErrCollectionNotFound))
		}
		return rs.wrap("delete collection", err)
	}
	rs.logger.Info("deleted remote collection", zap.String("collection", name), zap.String("target", rs.target))
	return nil
}

type remoteCollectionHandle struct {
	store *RemoteStore
	col   chroma.Collection
}

func (h *remoteCollectionHandle) Name() string { return h.col.Name() }

// Get fetches every record with its document and metadata. Metadata values
// that are not strings fail the conversion instead of being coerced.
func (h *remoteCollectionHandle) Get(ctx context.Context) (GetResult, error) {
	res, err := h.col.Get(ctx, chroma.WithIncludeGet(chroma.IncludeDocuments, chroma.IncludeMetadatas))
	if err != nil {
		return GetResult{}, h.store.wrap("get documents", err)
	}

	ids, docs, metas := res.GetIDs(), res.GetDocuments(), res.GetMetadatas()
	out := GetResult{
		IDs:       make([]string, 0, len(ids)),
		Documents: make([]string, 0, len(ids)),
		Metadatas: make([]Metadata, 0, len(ids)),
	}
	for i, id := range ids {
		var content string
		if i < len(docs) && docs[i] != nil {
			content = docs[i].ContentString()
		}
		var dm chroma.DocumentMetadata
		if i < len(metas) {
			dm = metas[i]
		}
		meta, err := metadataFromChroma(dm)
		if err != nil {
			return GetResult{}, storeErr("get documents", fmt.Errorf("document %q: %w", id, err))
		}
		out.IDs = append(out.IDs, string(id))
		out.Documents = append(out.Documents, content)
		out.Metadatas = append(out.Metadatas, meta)
	}
	return out, nil
}

// metadataFromChroma round-trips through JSON so the string-only rule of
// Metadata applies to whatever the server returned.
func metadataFromChroma(dm chroma.DocumentMetadata) (Metadata, error) {
	if dm == nil {
		return Metadata{}, nil
	}
	raw, err := json.Marshal(dm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = Metadata{}
	}
	return meta, nil
}

func metadataToChroma(m Metadata) chroma.DocumentMetadata {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	attrs := make([]*chroma.MetaAttribute, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, chroma.NewStringAttribute(k, m[k]))
	}
	return chroma.NewDocumentMetadata(attrs...)
}

// Add embeds the documents client-side and sends them in one request.
func (h *remoteCollectionHandle) Add(ctx context.Context, ids, documents []string, metadatas []Metadata) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return storeErr("add documents", fmt.Errorf("got %d ids, %d documents and %d metadatas", len(ids), len(documents), len(metadatas)))
	}
	if len(ids) == 0 {
		return nil
	}

	docIDs := make([]chroma.DocumentID, len(ids))
	embs := make([]embeddings.Embedding, len(documents))
	metas := make([]chroma.DocumentMetadata, len(metadatas))
	withMeta := false
	for i, doc := range documents {
		vec, err := h.store.embFunc(ctx, doc)
		if err != nil {
			return storeErr("add documents", fmt.Errorf("failed to embed document %q: %w", ids[i], err))
		}
		docIDs[i] = chroma.DocumentID(ids[i])
		embs[i] = embeddings.NewEmbeddingFromFloat32(vec)
		metas[i] = metadataToChroma(metadatas[i])
		withMeta = withMeta || metas[i] != nil
	}

	// the server rejects empty metadata objects, so they are left out
	var err error
	if withMeta {
		err = h.col.Add(ctx, chroma.WithIDs(docIDs...), chroma.WithTexts(documents...),
			chroma.WithEmbeddings(embs...), chroma.WithMetadatas(metas...))
	} else {
		err = h.col.Add(ctx, chroma.WithIDs(docIDs...), chroma.WithTexts(documents...),
			chroma.WithEmbeddings(embs...))
	}
	if err != nil {
		return h.store.wrap("add documents", err)
	}
	return nil
}
