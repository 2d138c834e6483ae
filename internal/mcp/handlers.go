package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/bracketeer/internal/cache"
	"github.com/standardbeagle/bracketeer/internal/document"
	"github.com/standardbeagle/bracketeer/internal/processing"
	"github.com/standardbeagle/bracketeer/internal/version"
)

type InfoParams struct {
	Tool string `json:"tool,omitempty"`
}

type AnalyzeParams struct {
	Path    string   `json:"path"`
	Content *string  `json:"content,omitempty"`
	Include []string `json:"include,omitempty"`
}

type SurroundingParams struct {
	Path    string  `json:"path"`
	Content *string `json:"content,omitempty"`
	Offset  *int    `json:"offset,omitempty"`
	Line    int     `json:"line,omitempty"`
	Column  int     `json:"column,omitempty"`
	Count   *int    `json:"count,omitempty"`
}

// SurroundingResponse is the result of surrounding_pairs
type SurroundingResponse struct {
	Path   string                  `json:"path"`
	Offset int                     `json:"offset"`
	Pairs  []processing.PairReport `json:"pairs"`
}

var toolHelp = map[string]string{
	"analyze_brackets":  `{"path": "src/main.c"} or {"path": "a.js", "content": "f(a", "include": ["singles"]}`,
	"surrounding_pairs": `{"path": "src/main.c", "offset": 120} or {"path": "src/main.c", "line": 10, "column": 4}`,
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params InfoParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("info", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	tool := strings.ToLower(strings.TrimSpace(params.Tool))
	switch tool {
	case "":
		return jsonResult(map[string]interface{}{
			"server":  ServerName,
			"version": version.FullInfo(),
			"tools":   []string{"analyze_brackets", "surrounding_pairs", "info"},
		})
	case "version":
		return jsonResult(map[string]interface{}{
			"server_name":    ServerName,
			"server_version": version.FullInfo(),
			"go_version":     runtime.Version(),
			"platform":       runtime.GOOS + "/" + runtime.GOARCH,
			"cache":          s.cache.Stats(),
		})
	default:
		example, ok := toolHelp[tool]
		if !ok {
			return errorResult("info", fmt.Errorf("unknown tool: %s", params.Tool))
		}
		return jsonResult(map[string]interface{}{
			"name":    tool,
			"example": example,
		})
	}
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("analyze_brackets", func() (*mcp.CallToolResult, error) {
		var params AnalyzeParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		doc, err := s.resolve(params.Path, params.Content)
		if err != nil {
			return nil, err
		}
		a, err := s.analyze(ctx, doc)
		if err != nil {
			return nil, err
		}
		if err := a.Keep(params.Include); err != nil {
			return nil, err
		}
		return jsonResult(a)
	})
}

func (s *Server) handleSurrounding(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("surrounding_pairs", func() (*mcp.CallToolResult, error) {
		var params SurroundingParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		doc, err := s.resolve(params.Path, params.Content)
		if err != nil {
			return nil, err
		}

		var offset int
		switch {
		case params.Offset != nil:
			offset = *params.Offset
		case params.Line > 0:
			start, err := doc.LineOffset(params.Line - 1)
			if err != nil {
				return nil, err
			}
			offset = start + params.Column - 1
		default:
			return nil, fmt.Errorf("offset or line is required")
		}
		if offset < 0 || offset > doc.Len() {
			return nil, fmt.Errorf("offset %d outside buffer of %d bytes", offset, doc.Len())
		}

		count := s.cfg.Surrounding.Count
		if params.Count != nil {
			count = *params.Count
		}

		a, err := s.analyze(ctx, doc)
		if err != nil {
			return nil, err
		}
		return jsonResult(&SurroundingResponse{
			Path:   a.Path,
			Offset: offset,
			Pairs:  a.Surrounding(offset, count),
		})
	})
}

// analyze returns the cached analysis of doc, running a cycle on a miss
func (s *Server) analyze(ctx context.Context, doc *document.Document) (*processing.Analysis, error) {
	key := cache.Key(doc.Path, doc.Content)
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}
	a, err := processing.Analyze(ctx, doc, s.processor)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, a)
	return a, nil
}
