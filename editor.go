package main

import (
	"context"
	"strings"
)

// submitDocument validates the add-document form and stores one new document
// under a fresh UUID in the selected collection. It returns the new id.
func (a *App) submitDocument(ctx context.Context, state SessionState, cmd AddDocument) (string, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return "", validationErr("content", EmptyContentMsg)
	}
	if state.SelectedCollection == "" {
		return "", validationErr("collection", NoCollectionSelected)
	}

	client, err := a.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return "", err
	}
	col, err := client.GetCollection(ctx, state.SelectedCollection)
	if err != nil {
		return "", err
	}

	id := a.newID()
	meta := formMetadata(cmd.MetadataKey, cmd.MetadataValue)
	if err := col.Add(ctx, []string{id}, []string{cmd.Content}, []Metadata{meta}); err != nil {
		return "", err
	}
	return id, nil
}

// formMetadata holds the single key/value pair only when both are present.
func formMetadata(key, value string) Metadata {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return Metadata{}
	}
	return Metadata{key: value}
}
