package mcp

import (
	"context"
	"slices"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cloud"
	"github.com/sha1n/mcp-vaultcloud-server/internal/scan"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

func TestCreateServer(t *testing.T) {
	cfg := ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
	}

	server := CreateServer(cfg)
	if server == nil {
		t.Fatal("Expected server to be created")
	}
}

func TestCreateServer_EmptyConfig(t *testing.T) {
	cfg := ServerConfig{}

	server := CreateServer(cfg)
	if server == nil {
		t.Fatal("Expected server to be created even with empty config")
	}
}

// listTools connects an in-memory client and returns the registered tool names.
func listTools(t *testing.T, server *mcp.Server) []string {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	return names
}

func TestCreateServer_RegistersTools(t *testing.T) {
	root := t.TempDir()
	orchestrator, err := scan.New(scan.Config{
		Store:      vault.NewFSStore(root, nil),
		StateStore: cache.NewFileStore(t.TempDir()+"/state.json", ""),
	})
	if err != nil {
		t.Fatalf("scan.New failed: %v", err)
	}
	clouds, err := cloud.NewService(cloud.Config{Aggregates: orchestrator})
	if err != nil {
		t.Fatalf("cloud.NewService failed: %v", err)
	}

	tests := []struct {
		name string
		cfg  ServerConfig
		want []string
	}{
		{"clouds only", ServerConfig{Name: "test", Clouds: clouds}, []string{"link_cloud", "tag_cloud", "word_cloud"}},
		{"all", ServerConfig{Name: "test", Clouds: clouds, Scans: orchestrator}, []string{
			"cancel_scan", "link_cloud", "recalculate", "scan_status", "tag_cloud", "word_cloud",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listTools(t, CreateServer(tt.cfg))
			if !slices.Equal(got, tt.want) {
				t.Errorf("tools = %v, want %v", got, tt.want)
			}
		})
	}
}
