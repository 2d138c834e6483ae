// Package mcp exposes bracket analysis as Model Context Protocol tools
package mcp

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/bracketeer/internal/cache"
	"github.com/standardbeagle/bracketeer/internal/config"
	bdebug "github.com/standardbeagle/bracketeer/internal/debug"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/security"
	"github.com/standardbeagle/bracketeer/internal/version"
)

// ServerName is the implementation name announced to clients
const ServerName = "bracketeer-mcp-server"

// Server answers tool calls by running one-shot analyses
type Server struct {
	server    *mcp.Server
	cfg       *config.Config
	processor *processing.Processor
	guard     *security.Guard
	cache     *cache.AnalysisCache
	root      string
}

// NewServer creates a server resolving relative paths against root
func NewServer(cfg *config.Config, root string) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}

	guard, err := security.NewGuard(root)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		processor: processing.NewProcessor(nil, cfg),
		guard:     guard,
		cache:     cache.New(cache.DefaultConfig()),
		root:      guard.Root,
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Info(),
	}, nil)
	s.registerTools()
	return s, nil
}

// Start serves over stdio until ctx is done or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	bdebug.LogMCP("starting MCP server with stdio transport, root %s\n", s.root)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying SDK server, for in-process transports
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Describe the bracketeer tools and server version.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": {
					Type:        "string",
					Description: "Tool name to describe (analyze_brackets, surrounding_pairs, version)",
				},
			},
		},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_brackets",
		Description: "Find matched bracket pairs, lonely (unmatched) brackets, scope hints and inactive preprocessor regions of a file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path, relative to the server root or absolute. The extension selects the language.",
				},
				"content": {
					Type:        "string",
					Description: "Buffer content to analyze instead of the file on disk",
				},
				"include": {
					Type:        "array",
					Description: "Sections to return: pairs, singles, hints, inactive (default all)",
					Items:       &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"path"},
		},
	}, s.handleAnalyze)

	s.server.AddTool(&mcp.Tool{
		Name:        "surrounding_pairs",
		Description: "List the bracket pairs enclosing a position, innermost first.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path, relative to the server root or absolute",
				},
				"content": {
					Type:        "string",
					Description: "Buffer content to analyze instead of the file on disk",
				},
				"offset": {
					Type:        "integer",
					Description: "Byte offset of the character before the caret",
				},
				"line": {
					Type:        "integer",
					Description: "1-based line, used with column instead of offset",
				},
				"column": {
					Type:        "integer",
					Description: "1-based byte column on line",
				},
				"count": {
					Type:        "integer",
					Description: "Maximum pairs to return (default from configuration, -1 for all)",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleSurrounding)
}

// resolve returns the snapshot a tool call refers to. Paths are confined
// to the root; inline content is analyzed as if it were the file at path.
func (s *Server) resolve(path string, content *string) (*document.Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if content != nil {
		resolved, err := s.guard.Resolve(path)
		if err != nil {
			return nil, err
		}
		return document.New(resolved, []byte(*content), 1), nil
	}
	resolved, data, err := s.guard.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return document.New(resolved, data, 1), nil
}

// recoverFromPanic turns a handler panic into an error result
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			bdebug.LogMCP("PANIC RECOVERED in %s: %v\n%s\n", operation, r, debug.Stack())
			result, err = errorResult(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		bdebug.LogMCP("error in %s: %v\n", operation, err)
		return errorResult(operation, err)
	}
	return result, nil
}
