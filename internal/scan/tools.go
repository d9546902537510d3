package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RecalculateArgument defines recalculate parameters.
type RecalculateArgument struct {
	Force bool `json:"force,omitempty" jsonschema:"Ignore the cached snapshot and revisit every note"`
}

// RecalculateHandler handles the recalculate MCP tool.
type RecalculateHandler struct {
	orchestrator *Orchestrator
}

// NewRecalculateHandler creates a new recalculate handler.
func NewRecalculateHandler(orchestrator *Orchestrator) *RecalculateHandler {
	return &RecalculateHandler{orchestrator: orchestrator}
}

// Handle runs a scan and reports its summary.
func (h *RecalculateHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RecalculateArgument) (*mcp.CallToolResult, any, error) {
	res, err := h.orchestrator.Run(ctx, RunOptions{Force: args.Force})
	switch {
	case errors.Is(err, ErrCancelled):
		return textResult("Scan was cancelled before completing. Previous results are still served.", true), nil, nil
	case err != nil:
		return textResult(fmt.Sprintf("Scan failed: %s", err), true), nil, nil
	case res.Skipped:
		return textResult(SkippedMessage, false), nil, nil
	}
	return textResult(FormatResult(res), false), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *RecalculateHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "recalculate",
		Description: "Rescan the vault and recompute word frequencies. Unchanged notes are served from the cache",
	}
}

// CancelArgument takes no parameters.
type CancelArgument struct{}

// CancelHandler handles the cancel_scan MCP tool.
type CancelHandler struct {
	orchestrator *Orchestrator
}

// NewCancelHandler creates a new cancel handler.
func NewCancelHandler(orchestrator *Orchestrator) *CancelHandler {
	return &CancelHandler{orchestrator: orchestrator}
}

// Handle requests cancellation of the running scan.
func (h *CancelHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CancelArgument) (*mcp.CallToolResult, any, error) {
	if !h.orchestrator.Cancel() {
		return textResult("No scan is running.", false), nil, nil
	}
	return textResult("Cancellation requested.", false), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *CancelHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cancel_scan",
		Description: "Cancel the running vault scan. Notes processed so far stay cached",
	}
}

// StatusArgument takes no parameters.
type StatusArgument struct{}

// StatusHandler handles the scan_status MCP tool.
type StatusHandler struct {
	orchestrator *Orchestrator
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(orchestrator *Orchestrator) *StatusHandler {
	return &StatusHandler{orchestrator: orchestrator}
}

// Handle reports the scan status.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgument) (*mcp.CallToolResult, any, error) {
	return textResult(FormatStatus(h.orchestrator.Status()), false), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StatusHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scan_status",
		Description: "Show the vault scan state, the last scan summary and the cache size",
	}
}

// RegisterTools registers the scan tools with an MCP server.
func RegisterTools(server *mcp.Server, orchestrator *Orchestrator) {
	recalculate := NewRecalculateHandler(orchestrator)
	mcp.AddTool(server, recalculate.GetToolDefinition(), recalculate.Handle)

	cancel := NewCancelHandler(orchestrator)
	mcp.AddTool(server, cancel.GetToolDefinition(), cancel.Handle)

	status := NewStatusHandler(orchestrator)
	mcp.AddTool(server, status.GetToolDefinition(), status.Handle)
}

// SkippedMessage reports a scan that did not run because another was active.
const SkippedMessage = "A scan is already in progress. Results will update when it completes."

// FormatResult renders a scan summary.
func FormatResult(res Result) string {
	if res.Skipped {
		return SkippedMessage + "\n"
	}
	var sb strings.Builder
	if res.Fresh {
		sb.WriteString("Vault unchanged since the last scan, cached results reused.\n")
	} else {
		sb.WriteString("Scan complete.\n")
	}
	fmt.Fprintf(&sb, "Scan ID: %s\n", res.ScanID)
	fmt.Fprintf(&sb, "Notes: %d (cached %d, read %d, failed %d, pruned %d)\n",
		res.Files, res.Hits, res.Misses, res.Failed, res.Pruned)
	fmt.Fprintf(&sb, "Distinct words: %d (%d without stop words)\n",
		len(res.WithStopwords), len(res.WithoutStopwords))
	fmt.Fprintf(&sb, "Duration: %s\n", res.Duration.Round(time.Millisecond))
	return sb.String()
}

// FormatStatus renders a status report.
func FormatStatus(st Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "State: %s\n", st.State)
	fmt.Fprintf(&sb, "Cached notes: %d\n", st.CachedFiles)
	if st.SnapshotAt.IsZero() {
		sb.WriteString("Snapshot: none\n")
	} else {
		fmt.Fprintf(&sb, "Snapshot: %s (%d words, %d without stop words)\n",
			st.SnapshotAt.Format(time.RFC3339), st.DistinctWords, st.DistinctFiltered)
	}
	if st.LastScanID != "" {
		fmt.Fprintf(&sb, "Last scan: %s %s at %s\n", st.LastScanID, st.LastOutcome, st.LastCompletedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "Notes: %d (cached %d, read %d, failed %d, pruned %d)\n",
			st.Files, st.Hits, st.Misses, st.Failed, st.Pruned)
	}
	return sb.String()
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}
