package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CloudArgument defines cloud tool parameters.
type CloudArgument struct {
	Options string `json:"options,omitempty" jsonschema:"YAML options block, e.g. 'source: vault\nminCount: 2\nmaxDistinctLevels: 5'"`
	Note    string `json:"note,omitempty" jsonschema:"Vault-relative path of the note, required for source: file"`
	Format  string `json:"format,omitempty" jsonschema:"Output format: text (default) or json"`
}

// CloudHandler handles one of the cloud MCP tools.
type CloudHandler struct {
	service *Service
	kind    Kind
}

// NewCloudHandler creates a handler for clouds of the given kind.
func NewCloudHandler(service *Service, kind Kind) *CloudHandler {
	return &CloudHandler{
		service: service,
		kind:    kind,
	}
}

// Handle builds the cloud and returns it formatted.
func (h *CloudHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CloudArgument) (*mcp.CallToolResult, any, error) {
	opts, err := ParseOptions(args.Options)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	cloud, err := h.service.Generate(ctx, Request{Kind: h.kind, Options: opts, Note: args.Note})
	if err != nil {
		return h.failure(err), nil, nil
	}

	text, err := Render(cloud, args.Format)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func (h *CloudHandler) failure(err error) *mcp.CallToolResult {
	var cfgErr *ConfigError
	switch {
	case errors.Is(err, ErrNoEntries):
		return errorResult(NoEntriesMessage)
	case errors.As(err, &cfgErr):
		return errorResult(cfgErr.Error())
	case errors.Is(err, ErrCapabilityUnavailable):
		return errorResult(fmt.Sprintf("This cloud is not available: %s", err))
	default:
		return errorResult(fmt.Sprintf("Failed to generate cloud: %s", err))
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *CloudHandler) GetToolDefinition() *mcp.Tool {
	switch h.kind {
	case KindTags:
		return &mcp.Tool{
			Name:        "tag_cloud",
			Description: "Rank note tags by frequency for a tag cloud. Sources: vault, file or query",
		}
	case KindLinks:
		return &mcp.Tool{
			Name:        "link_cloud",
			Description: "Rank link targets by the number of notes linking to them. Options type: resolved, unresolved or both",
		}
	default:
		return &mcp.Tool{
			Name:        "word_cloud",
			Description: "Rank words by frequency for a word cloud, with stop words optionally removed. Sources: vault, file or query",
		}
	}
}

// RegisterTools registers the cloud tools with an MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	for _, kind := range []Kind{KindWords, KindTags, KindLinks} {
		handler := NewCloudHandler(service, kind)
		mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
