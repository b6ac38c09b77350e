package main

import (
	"context"
	"strings"
)

// createCollection creates a named collection on the session's store.
// Duplicate names fail at the store and never overwrite.
func (a *App) createCollection(ctx context.Context, state SessionState, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr("name", EmptyCollectionMsg)
	}
	client, err := a.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return err
	}
	return client.CreateCollection(ctx, name)
}

// deleteCollection irreversibly removes a collection. It refuses to run
// unless the session enabled danger mode.
func (a *App) deleteCollection(ctx context.Context, state SessionState, name string) error {
	if !state.DangerMode {
		return ErrDangerModeDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr("name", EmptyCollectionMsg)
	}
	client, err := a.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return err
	}
	return client.DeleteCollection(ctx, name)
}
