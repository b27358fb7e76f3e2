package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the CDP command gateway via MCP
type MCPServer struct {
	gateway         *Gateway
	logger          *Logger
	mcpServer       *server.MCPServer
	serverTransport string
}

// NewMCPServer creates a new MCP server that exposes the gateway's
// relay functionality
func NewMCPServer(gateway *Gateway, serverTransport string, logger *Logger) (*MCPServer, error) {
	// Create MCP server
	mcpServer := server.NewMCPServer(
		"mcp-cdp",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	ms := &MCPServer{
		gateway:         gateway,
		logger:          logger,
		mcpServer:       mcpServer,
		serverTransport: serverTransport,
	}

	// Register all tools
	ms.registerTools()

	return ms, nil
}

// Start starts the MCP server using stdio or streamable-http transport
func (m *MCPServer) Start(ctx context.Context, listenAddr string) error {
	// Start the server with the specified transport
	switch m.serverTransport {
	case "stdio":
		return server.ServeStdio(m.mcpServer)
	case "streamable-http":
		httpServer := server.NewStreamableHTTPServer(
			m.mcpServer,
			server.WithEndpointPath("/mcp"),
		)
		return httpServer.Start(listenAddr)
	default:
		return fmt.Errorf("unsupported server transport: %s", m.serverTransport)
	}
}

// registerTools registers all MCP tools
func (m *MCPServer) registerTools() {
	// Generic CDP command relay
	cdpCommandTool := mcp.NewTool(toolCDPCommand,
		mcp.WithDescription("Execute an arbitrary Chrome DevTools Protocol command against the connected page. Large base64 payloads in the response (screenshots, PDFs, captured bodies) are saved to disk and replaced with file references."),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("CDP method name, e.g. Runtime.evaluate or Page.captureScreenshot"),
		),
		mcp.WithString("params",
			mcp.Description("JSON-encoded parameters for the command (default empty object)"),
		),
	)
	m.mcpServer.AddTool(cdpCommandTool, m.handleCDPCommand)

	// Target directory listing
	listTargetsTool := mcp.NewTool(toolListTargets,
		mcp.WithDescription("List the browser's debuggable page targets"),
	)
	m.mcpServer.AddTool(listTargetsTool, m.handleListTargets)
}
