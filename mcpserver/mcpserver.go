// ABOUTME: MCP server exposing the lint engine as a lint_flow tool over stdio.
// ABOUTME: Accepts the flow and optional rule config as JSON text or inline JSON values.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/lint"
)

// ToolName is the name of the lint tool.
const ToolName = "lint_flow"

// Options configures the MCP server.
type Options struct {
	Version string
	// Config is applied when a call does not pass its own config.
	Config      lint.Config
	Plugins     lint.Registry
	Concurrency int
	Logger      *log.Logger
}

// LintInput is the lint_flow tool input.
type LintInput struct {
	Flow   any `json:"flow" jsonschema:"the flow export to lint, as a JSON array of nodes or a JSON string containing it"`
	Config any `json:"config,omitempty" jsonschema:"optional rule config {subrules:[{name,...params}]}, as an object or JSON string"`
}

// LintOutput is the lint_flow tool output.
type LintOutput struct {
	Result []lint.Diagnostic `json:"result"`
}

// Handler implements the lint_flow tool.
type Handler struct {
	opts Options
}

// NewHandler returns a Handler for opts.
func NewHandler(opts Options) *Handler {
	return &Handler{opts: opts}
}

// New builds an MCP server with the lint_flow tool registered.
func New(opts Options) *mcp.Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "flowlint", Version: version}, nil)
	h := NewHandler(opts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Lint a Node-RED style flow export and return diagnostics as {result:[{rule,ids,name,severity,message}]}",
	}, h.LintFlow)
	return server
}

// Serve runs the MCP server over stdin/stdout until ctx ends or the client disconnects.
func Serve(ctx context.Context, opts Options) error {
	return New(opts).Run(ctx, &mcp.StdioTransport{})
}

// LintFlow lints the flow in the tool input.
func (h *Handler) LintFlow(ctx context.Context, _ *mcp.CallToolRequest, in LintInput) (*mcp.CallToolResult, LintOutput, error) {
	flowJSON, err := rawJSON(in.Flow)
	if err != nil {
		return nil, LintOutput{}, fmt.Errorf("flow: %w", err)
	}
	if flowJSON == nil {
		return nil, LintOutput{}, errors.New("flow is required")
	}
	fs, err := flow.ParseJSON(flowJSON)
	if err != nil {
		return nil, LintOutput{}, err
	}

	cfg := h.opts.Config
	cfgJSON, err := rawJSON(in.Config)
	if err != nil {
		return nil, LintOutput{}, fmt.Errorf("config: %w", err)
	}
	if cfgJSON != nil {
		var override lint.Config
		if err := json.Unmarshal(cfgJSON, &override); err != nil {
			return nil, LintOutput{}, fmt.Errorf("decode config: %w", err)
		}
		cfg = override.WithDefaults()
	}

	report, err := lint.Run(ctx, fs, cfg, h.opts.Plugins, lint.WithConcurrency(h.opts.Concurrency))
	if err != nil {
		return nil, LintOutput{}, err
	}
	if h.opts.Logger != nil {
		h.opts.Logger.Printf("mcp lint nodes=%d diagnostics=%d", fs.Len(), len(report.Result))
	}
	return nil, LintOutput{Result: report.Result}, nil
}

// rawJSON turns a decoded tool argument back into JSON text. A string argument is
// taken to already be JSON text. Absent arguments yield nil.
func rawJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(val), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode argument: %w", err)
		}
		return data, nil
	}
}
