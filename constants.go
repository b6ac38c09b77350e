package main

// Server identity
const (
	// Application name used for the MCP server and page title
	ServerName = "chromadmin"
	// Server version following semantic versioning
	ServerVersion = "0.3.0"
)

// Connection defaults, matching the sidebar defaults
const (
	DefaultRemoteHost = "localhost"
	DefaultRemotePort = 8000
	DefaultTenant     = "default_tenant"
	DefaultDatabase   = "default_database"
	// Seconds before a remote store call is abandoned
	DefaultRemoteTimeoutSeconds = 10
)

// Embedding constants
const (
	EmbeddingProviderHash     = "hash"
	EmbeddingProviderGemini   = "gemini"
	EmbeddingProviderLMStudio = "lmstudio"

	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultLMStudioURL    = "http://localhost:1234/v1"
	DefaultLMStudioModel  = "nomic-embed-text-v1.5"
	// Output dimensionality for embeddings
	EmbeddingDimension = 384
	// Task type for stored documents
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
)

// Web server constants
const (
	DefaultListenAddr = ":8501"
	SessionCookieName = "chromadmin_session"
	// Minutes of inactivity before a session is forgotten
	DefaultSessionTTLMinutes = 60
	DefaultLogFile           = "chromadmin.log"
)

// Tabs of the main area
const (
	TabDocuments = "documents"
	TabAdd       = "add"
)

// UI/CLI messages
const (
	PromptStr     = "chromadmin> "
	WelcomeMsg    = "=== chromadmin Test Mode ==="
	HelpMsg       = "Commands: connect local | connect remote <host> <port> | collections | use <name> | docs | add <content> | addmeta <key> <value> <content> | create <name> | danger on|off | delete <name> | export | exit"
	UnknownCmdMsg = "Unknown command. Try: help"
)

// Notices shown to the operator
const (
	NoCollectionsMsg      = "No collections found"
	NoDocumentsMsg        = "No documents in this collection"
	CollectionCreatedMsg  = "Collection created!"
	CollectionDeletedMsg  = "Collection deleted!"
	DocumentAddedMsg      = "Document added successfully!"
	EmptyContentMsg       = "Please enter document content"
	EmptyCollectionMsg    = "Collection name is required"
	NoCollectionSelected  = "No collection selected"
	ConnectionUpdatedMsg  = "Connection updated"
	DangerEnabledMsg      = "Delete operations enabled"
	DangerDisabledMsg     = "Delete operations disabled"
	ConnectErrorMsgPrefix = "Error connecting to ChromaDB: "
)
