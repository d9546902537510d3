package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cloud"
	"github.com/sha1n/mcp-vaultcloud-server/internal/scan"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	// Scans enables the recalculate, cancel_scan and scan_status tools.
	Scans *scan.Orchestrator
	// Clouds enables the word_cloud, tag_cloud and link_cloud tools.
	Clouds *cloud.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Clouds != nil {
		cloud.RegisterTools(s, cfg.Clouds)
	}
	if cfg.Scans != nil {
		scan.RegisterTools(s, cfg.Scans)
	}

	return s
}
