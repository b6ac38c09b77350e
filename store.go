package main

import (
	"context"
	"net/http"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// StoreClient is the connection handle every operator action goes through.
type StoreClient interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollection returns a handle for an existing collection.
	GetCollection(ctx context.Context, name string) (CollectionHandle, error)

	// CreateCollection creates a collection; an existing name is an error.
	CreateCollection(ctx context.Context, name string) error

	// DeleteCollection irreversibly removes a collection and its documents.
	DeleteCollection(ctx context.Context, name string) error
}

// CollectionHandle operates on the documents of a single collection.
type CollectionHandle interface {
	Name() string

	// Get returns every document of the collection in store order.
	Get(ctx context.Context) (GetResult, error)

	// Add stores documents given as parallel sequences.
	Add(ctx context.Context, ids, documents []string, metadatas []Metadata) error
}

// RemoteOptions carries the configured defaults for Remote connections.
type RemoteOptions struct {
	Tenant   string
	Database string
	UseTLS   bool
	Timeout  time.Duration
}

// StoreResolver produces a StoreClient for a ConnectionConfig. The local
// store is shared by the whole process; remote clients are built per call.
type StoreResolver struct {
	local      *LocalStore
	remote     RemoteOptions
	httpClient *http.Client
	embFunc    chromem.EmbeddingFunc
	logger     *zap.Logger
}

// NewStoreResolver wires the local store and the remote defaults together.
func NewStoreResolver(local *LocalStore, remote RemoteOptions, embFunc chromem.EmbeddingFunc, logger *zap.Logger) *StoreResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if remote.Tenant == "" {
		remote.Tenant = DefaultTenant
	}
	if remote.Database == "" {
		remote.Database = DefaultDatabase
	}
	if remote.Timeout <= 0 {
		remote.Timeout = DefaultRemoteTimeoutSeconds * time.Second
	}
	return &StoreResolver{
		local:      local,
		remote:     remote,
		httpClient: &http.Client{Timeout: remote.Timeout},
		embFunc:    embFunc,
		logger:     logger,
	}
}

// Resolve returns the client for conn. Remote connections are checked with a
// heartbeat and fail with a ConnectionError when the host cannot be reached.
func (r *StoreResolver) Resolve(ctx context.Context, conn ConnectionConfig) (StoreClient, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if conn.Mode != HostRemote {
		return r.local, nil
	}
	return NewRemoteStore(ctx, conn, r.remote, r.httpClient, r.embFunc, r.logger)
}
