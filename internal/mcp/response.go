package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/bracketeer/internal/security"
)

// ToolError is the body of a failed tool call
type ToolError struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
	Example   string `json:"example,omitempty"`
}

// errorKind classifies err so clients can tell bad input from unreadable files
func errorKind(err error) string {
	switch {
	case errors.Is(err, security.ErrOutsideRoot):
		return "outside_root"
	case errors.Is(err, security.ErrBinary):
		return "binary"
	case errors.Is(err, security.ErrTooLarge):
		return "too_large"
	case errors.Is(err, fs.ErrNotExist):
		return "not_found"
	default:
		return "invalid_request"
	}
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResult reports a failure inside the result with IsError set; the
// protocol call itself succeeds
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(ToolError{
		Operation: operation,
		Kind:      errorKind(err),
		Error:     err.Error(),
		Example:   toolHelp[operation],
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
