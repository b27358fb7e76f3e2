package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleCDPCommand handles the cdp_command tool request
func (m *MCPServer) handleCDPCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}

	method, ok := args["method"].(string)
	if !ok || method == "" {
		return mcp.NewToolResultError("missing or invalid 'method' argument"), nil
	}

	// Params arrive JSON-encoded; validate fully before any network
	// activity happens.
	params, err := parseCommandParams(args["params"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := m.gateway.Execute(ctx, method, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// parseCommandParams normalizes the optional params argument. Absent or
// empty params become an empty object; a string must hold valid JSON.
func parseCommandParams(raw interface{}) (any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
		var params any
		if err := json.Unmarshal([]byte(v), &params); err != nil {
			return nil, fmt.Errorf("invalid 'params' JSON: %v", err)
		}
		return params, nil
	case map[string]interface{}:
		return v, nil
	default:
		return nil, fmt.Errorf("'params' must be a JSON-encoded string or object, got %T", raw)
	}
}

// handleListTargets handles the list_targets tool request
func (m *MCPServer) handleListTargets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets, err := m.gateway.Targets(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}

	// Convert to JSON
	data, err := json.Marshal(targets)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal targets: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}
