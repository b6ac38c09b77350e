package main

import (
	"context"
	"time"
)

// ExportData is the downloadable snapshot of one collection.
type ExportData struct {
	Collection string     `json:"collection"`
	ExportedAt time.Time  `json:"exported_at"`
	Count      int        `json:"count"`
	Documents  []Document `json:"documents"`
	Version    string     `json:"version"` // export format version
}

// ExportFilename is the attachment name offered to the browser.
func (e *ExportData) ExportFilename() string {
	return e.Collection + ".export.json"
}

// ExportCollection reads every document of the session's selected collection.
func (a *App) ExportCollection(ctx context.Context, state SessionState) (*ExportData, error) {
	if state.SelectedCollection == "" {
		return nil, validationErr("collection", NoCollectionSelected)
	}
	client, err := a.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return nil, err
	}
	col, err := client.GetCollection(ctx, state.SelectedCollection)
	if err != nil {
		return nil, err
	}
	docs, err := a.getDocuments(ctx, col)
	if err != nil {
		return nil, err
	}

	return &ExportData{
		Collection: col.Name(),
		ExportedAt: time.Now().UTC(),
		Count:      len(docs),
		Documents:  docs,
		Version:    "1.0",
	}, nil
}
