package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// MCPTools exposes the admin commands as MCP tools. A stdio server has a
// single operator, so one session state lives for the whole process.
type MCPTools struct {
	core   *App
	logger *zap.Logger

	mu    sync.Mutex
	state SessionState
}

// NewMCPTools creates the tool set for conn. Danger mode is fixed at startup.
func NewMCPTools(core *App, conn ConnectionConfig, danger bool, logger *zap.Logger) *MCPTools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPTools{
		core:   core,
		logger: logger,
		state:  NewSessionState().WithConnection(conn).WithDangerMode(danger),
	}
}

// tools lists the registered tools. delete_collection only exists when the
// process was started in danger mode.
func (t *MCPTools) tools() []server.ServerTool {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("list_collections",
				mcp.WithDescription("Lists the names of all collections in the connected store."),
			),
			Handler: t.listCollectionsHandler,
		},
		{
			Tool: mcp.NewTool("show_documents",
				mcp.WithDescription("Shows every document of a collection with its id, content and metadata."),
				mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
			),
			Handler: t.showDocumentsHandler,
		},
		{
			Tool: mcp.NewTool("create_collection",
				mcp.WithDescription("Creates a new empty collection."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new collection")),
			),
			Handler: t.createCollectionHandler,
		},
		{
			Tool: mcp.NewTool("add_document",
				mcp.WithDescription("Adds a document under a freshly generated id, with an optional single metadata pair."),
				mcp.WithString("collection", mcp.Required(), mcp.Description("Target collection")),
				mcp.WithString("content", mcp.Required(), mcp.Description("Document text")),
				mcp.WithString("metadata_key", mcp.Description("Optional metadata key")),
				mcp.WithString("metadata_value", mcp.Description("Optional metadata value")),
			),
			Handler: t.addDocumentHandler,
		},
		{
			Tool: mcp.NewTool("export_collection",
				mcp.WithDescription("Returns a JSON snapshot of every document in a collection."),
				mcp.WithString("collection", mcp.Required(), mcp.Description("Collection to export")),
			),
			Handler: t.exportCollectionHandler,
		},
	}

	if t.snapshot().DangerMode {
		tools = append(tools, server.ServerTool{
			Tool: mcp.NewTool("delete_collection",
				mcp.WithDescription("Deletes a collection and all its documents. Cannot be undone."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Collection to delete")),
			),
			Handler: t.deleteCollectionHandler,
		})
	}
	return tools
}

// NewMCPServer creates the stdio server with every tool registered.
func (t *MCPTools) NewMCPServer() *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion)
	s.AddTools(t.tools()...)
	return s
}

// Serve runs the stdio transport until stdin closes.
func (t *MCPTools) Serve() error {
	t.logger.Info("MCP server starting on stdio",
		zap.String("connection", t.snapshot().Connection.Address()),
		zap.Bool("danger", t.snapshot().DangerMode))
	return server.ServeStdio(t.NewMCPServer())
}

func (t *MCPTools) snapshot() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// run dispatches cmd against the process session, optionally selecting a
// collection first, and returns the command outcome.
func (t *MCPTools) run(ctx context.Context, collection string, cmd Command) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state
	if collection != "" {
		state = state.WithSelectedCollection(collection)
	}
	next, out := t.core.Dispatch(ctx, state, cmd)
	// notices are for page renders; tool results carry them instead
	_, t.state = next.TakeNotices()
	return out
}

func outcomeResult(out Outcome) *mcp.CallToolResult {
	if out.Err != nil {
		return mcp.NewToolResultError(out.Notice.Text)
	}
	return mcp.NewToolResultText(out.Notice.Text)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func (t *MCPTools) listCollectionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := t.snapshot()
	client, err := t.core.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	names, err := t.core.listCollections(ctx, client)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText(NoCollectionsMsg), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d collections:\n", len(names)))
	for _, name := range names {
		sb.WriteString("- " + name + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *MCPTools) showDocumentsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	collection := strings.TrimSpace(stringArg(args, "collection"))
	if collection == "" {
		return mcp.NewToolResultError(EmptyCollectionMsg), nil
	}

	data, err := t.core.ExportCollection(ctx, t.snapshot().WithSelectedCollection(collection))
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	if data.Count == 0 {
		return mcp.NewToolResultText(NoDocumentsMsg), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Collection '%s' contains %d documents:\n\n", data.Collection, data.Count))
	for _, doc := range data.Documents {
		sb.WriteString(fmt.Sprintf("Document ID: %s\n%s\nMetadata: %s\n---\n", doc.ID, doc.Content, metadataJSON(doc.Metadata)))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *MCPTools) createCollectionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	out := t.run(ctx, "", CreateCollection{Collection: stringArg(args, "name")})
	return outcomeResult(out), nil
}

func (t *MCPTools) addDocumentHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	collection := strings.TrimSpace(stringArg(args, "collection"))
	if collection == "" {
		return mcp.NewToolResultError(NoCollectionSelected), nil
	}

	out := t.run(ctx, collection, AddDocument{
		Content:       stringArg(args, "content"),
		MetadataKey:   stringArg(args, "metadata_key"),
		MetadataValue: stringArg(args, "metadata_value"),
	})
	if out.Err != nil {
		return outcomeResult(out), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s ID: %s", out.Notice.Text, out.DocumentID)), nil
}

func (t *MCPTools) exportCollectionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	collection := strings.TrimSpace(stringArg(args, "collection"))
	if collection == "" {
		return mcp.NewToolResultError(EmptyCollectionMsg), nil
	}

	data, err := t.core.ExportCollection(ctx, t.snapshot().WithSelectedCollection(collection))
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode export: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (t *MCPTools) deleteCollectionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	out := t.run(ctx, "", DeleteCollection{Collection: stringArg(args, "name")})
	return outcomeResult(out), nil
}
