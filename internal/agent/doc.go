// Package agent provides the CDP relay implementation behind the
// mcp-cdp server.
//
// The package ties three pieces together: target discovery against the
// browser's HTTP directory endpoint, a correlating WebSocket transport
// for arbitrary Chrome DevTools Protocol commands, and a binary
// extraction pass that diverts large base64 payloads (screenshots,
// PDFs, captured bodies) to files so tool output stays bounded.
//
// # Key Components
//
//   - Gateway: lazily connects to the first debuggable page target and
//     forwards opaque protocol commands
//   - MCPServer: exposes the gateway as MCP tools over stdio or
//     streamable-http transport
//   - REPL: interactive console for issuing protocol commands by hand
//   - Logger: formatted stderr logging with color support and protocol
//     message tracing
package agent
