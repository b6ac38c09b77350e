package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// HostType selects between the in-process store and a network store.
type HostType string

const (
	HostLocal  HostType = "Local"
	HostRemote HostType = "Remote"
)

// ParseHostType maps operator input onto a HostType.
func ParseHostType(s string) (HostType, error) {
	switch HostType(s) {
	case HostLocal, "local", "":
		return HostLocal, nil
	case HostRemote, "remote":
		return HostRemote, nil
	}
	return "", validationErr("host_type", fmt.Sprintf("unknown host type %q", s))
}

// ConnectionConfig is built from sidebar input on every render; it is never persisted.
type ConnectionConfig struct {
	Mode HostType `json:"mode"`
	Host string   `json:"host,omitempty"`
	Port int      `json:"port,omitempty"`
}

// LocalConnection is the connection every new session starts with.
func LocalConnection() ConnectionConfig {
	return ConnectionConfig{Mode: HostLocal}
}

// Validate checks that a Remote connection names a host and a usable port.
func (c ConnectionConfig) Validate() error {
	if c.Mode != HostRemote {
		return nil
	}
	if c.Host == "" {
		return validationErr("host", "Host is required for a remote connection")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return validationErr("port", fmt.Sprintf("Port %d is out of range", c.Port))
	}
	return nil
}

// Address returns host:port for Remote connections and "local" otherwise.
func (c ConnectionConfig) Address() string {
	if c.Mode != HostRemote {
		return "local"
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Metadata is the string-to-string mapping attached to a document.
type Metadata map[string]string

// UnmarshalJSON accepts only string values; numbers, booleans and nested
// objects are rejected instead of being coerced.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metadata must be an object: %w", err)
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("metadata key %q: value %s is not a string", k, string(v))
		}
		out[k] = s
	}
	*m = out
	return nil
}

// Document is a unit of content owned by the store.
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// GetResult holds the parallel sequences a collection get returns.
type GetResult struct {
	IDs       []string   `json:"ids"`
	Documents []string   `json:"documents"`
	Metadatas []Metadata `json:"metadatas"`
}

// Len is the number of documents in the result.
func (r GetResult) Len() int { return len(r.IDs) }

// Entries zips the parallel sequences into documents, keeping store order.
func (r GetResult) Entries() []Document {
	docs := make([]Document, 0, len(r.IDs))
	for i, id := range r.IDs {
		doc := Document{ID: id, Metadata: Metadata{}}
		if i < len(r.Documents) {
			doc.Content = r.Documents[i]
		}
		if i < len(r.Metadatas) && r.Metadatas[i] != nil {
			doc.Metadata = r.Metadatas[i]
		}
		docs = append(docs, doc)
	}
	return docs
}
