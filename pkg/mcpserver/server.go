// Package mcpserver exposes the rewriter to LLM agents as Model Context
// Protocol tools, so generated queries are certified before execution.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"

	"github.com/nsxbet/cypher-guard/pkg/audit"
	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/logger"
	"github.com/nsxbet/cypher-guard/pkg/rewriter"
)

// Tool names.
const (
	ToolRewriteCypher = "rewrite_cypher"
	ToolDetectDialect = "detect_dialect"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp      *mcp.Server
	rewriter *rewriter.Rewriter
	logger   logger.Interface
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(rw *rewriter.Rewriter, version string, l logger.Interface) *Server {
	if l == nil {
		l = logger.Nop()
	}
	srv := &Server{
		rewriter: rw,
		logger:   l,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "cypher-guard",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves the tools over stdio until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	cfg := s.rewriter.Config()

	s.mcp.AddTool(&mcp.Tool{
		Name: ToolRewriteCypher,
		Description: fmt.Sprintf("Certify a read-only Cypher query before running it against the graph database (dialect %s, APOC %s). "+
			"Returns status \"accepted\" with the query to execute and the list of changes applied, "+
			"or status \"rejected\" with the reason. Never execute a rejected query.", cfg.Version, enabled(cfg.AllowApoc)),
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The Cypher query to certify."
				}
			},
			"required": ["query"]
		}`),
	}, s.handleRewriteCypher)

	s.mcp.AddTool(&mcp.Tool{
		Name:        ToolDetectDialect,
		Description: "Map a graph database server version (e.g. 4.4.18, 5.12.0, 2025.11.2) to the Cypher dialect version V4 or V5.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"server_version": {
					"type": "string",
					"description": "Server version string as reported by the database."
				}
			},
			"required": ["server_version"]
		}`),
	}, s.handleDetectDialect)
}

func (s *Server) handleRewriteCypher(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	query, ok := args["query"].(string)
	if !ok {
		return errResult("missing required 'query' parameter"), nil
	}

	res := s.rewriter.Rewrite(query)
	record := audit.New(ToolRewriteCypher, query, s.rewriter.Config(), res)
	s.logger.Info("tool call", "tool", ToolRewriteCypher, "id", record.ID, "status", record.Status, logger.Fingerprint(record.Fingerprint))

	result := jsonResult(record)
	result.IsError = !record.Accepted()
	return result, nil
}

func (s *Server) handleDetectDialect(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	serverVersion, _ := args["server_version"].(string)
	if serverVersion == "" {
		return errResult("missing required 'server_version' parameter"), nil
	}

	v, err := dialect.Detect(serverVersion)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"server_version": serverVersion,
		"dialect":        v.String(),
	}), nil
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, errors.Wrap(err, "invalid arguments")
	}
	return m, nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
