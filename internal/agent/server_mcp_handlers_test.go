package agent

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// callToolRequest builds a CallToolRequest with the given arguments.
func callToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the text content from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func newTestMCPServer(t *testing.T, gateway *Gateway) *MCPServer {
	t.Helper()

	server, err := NewMCPServer(gateway, "stdio", NewLoggerWithWriter(false, false, false, io.Discard))
	if err != nil {
		t.Fatalf("NewMCPServer failed: %v", err)
	}
	return server
}

func TestHandleCDPCommandInputValidation(t *testing.T) {
	// The chrome URL is unreachable on purpose: malformed input must be
	// rejected before any network activity happens.
	gateway := NewGateway(GatewayConfig{
		ChromeURL: "http://127.0.0.1:1",
		OutputDir: t.TempDir(),
		Logger:    NewLoggerWithWriter(false, false, false, io.Discard),
	})
	server := newTestMCPServer(t, gateway)

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantSubstr string
	}{
		{
			name:       "missing method",
			args:       map[string]interface{}{},
			wantSubstr: "missing or invalid 'method'",
		},
		{
			name:       "empty method",
			args:       map[string]interface{}{"method": ""},
			wantSubstr: "missing or invalid 'method'",
		},
		{
			name:       "method wrong type",
			args:       map[string]interface{}{"method": 42.0},
			wantSubstr: "missing or invalid 'method'",
		},
		{
			name:       "malformed params JSON",
			args:       map[string]interface{}{"method": "Runtime.evaluate", "params": `{"expression":`},
			wantSubstr: "invalid 'params' JSON",
		},
		{
			name:       "params wrong type",
			args:       map[string]interface{}{"method": "Runtime.evaluate", "params": 42.0},
			wantSubstr: "'params' must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleCDPCommand(context.Background(), callToolRequest(toolCDPCommand, tt.args))
			if err != nil {
				t.Fatalf("handler must not return a Go error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected an error result")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.wantSubstr) {
				t.Errorf("expected %q in %q", tt.wantSubstr, text)
			}
		})
	}
}

func TestHandleCDPCommandSuccess(t *testing.T) {
	mb := newMockBrowser(t, echoResponder(map[string]string{
		"Runtime.evaluate": `{"value": 2}`,
	}))
	server := newTestMCPServer(t, newTestGateway(t, mb, t.TempDir()))

	result, err := server.handleCDPCommand(context.Background(), callToolRequest(toolCDPCommand, map[string]interface{}{
		"method": "Runtime.evaluate",
		"params": `{"expression": "1+1"}`,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, `"value": 2`) {
		t.Errorf("expected serialized result in output, got:\n%s", text)
	}
}

func TestHandleCDPCommandNoTargets(t *testing.T) {
	mb := newMockBrowser(t, echoResponder(nil))
	mb.SetNoTargets(true)
	gateway := newTestGateway(t, mb, t.TempDir())
	server := newTestMCPServer(t, gateway)

	result, err := server.handleCDPCommand(context.Background(), callToolRequest(toolCDPCommand, map[string]interface{}{
		"method": "Runtime.evaluate",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	text := resultText(t, result)
	if !strings.HasPrefix(text, "Error: ") {
		t.Errorf("expected Error: prefix, got %q", text)
	}
	if !strings.Contains(text, "no debuggable page targets") {
		t.Errorf("expected message to mention missing targets, got %q", text)
	}
	if gateway.Connected() {
		t.Error("no connection must be left marked connected")
	}
}

func TestHandleListTargets(t *testing.T) {
	mb := newMockBrowser(t, echoResponder(nil))
	server := newTestMCPServer(t, newTestGateway(t, mb, t.TempDir()))

	result, err := server.handleListTargets(context.Background(), callToolRequest(toolListTargets, nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	var targets []map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &targets); err != nil {
		t.Fatalf("output is not a JSON target list: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 page target, got %d", len(targets))
	}
	if targets[0]["type"] != "page" {
		t.Errorf("expected page target, got %v", targets[0]["type"])
	}
}

func TestParseCommandParams(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		wantErr bool
	}{
		{name: "absent", raw: nil},
		{name: "empty string", raw: ""},
		{name: "json object string", raw: `{"expression": "1+1"}`},
		{name: "pre-decoded object", raw: map[string]interface{}{"expression": "1+1"}},
		{name: "truncated json", raw: `{"expression"`, wantErr: true},
		{name: "number", raw: 3.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := parseCommandParams(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params == nil {
				t.Error("expected non-nil params")
			}
		})
	}
}
