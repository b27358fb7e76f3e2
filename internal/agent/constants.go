package agent

import "time"

// Tool names exposed by the MCP server.
const (
	toolCDPCommand  = "cdp_command"
	toolListTargets = "list_targets"
)

// Defaults for the gateway configuration.
const (
	// DefaultChromeURL is the browser's HTTP debugging endpoint when
	// started with --remote-debugging-port=9222.
	DefaultChromeURL = "http://localhost:9222"

	// DefaultOutputDir receives extracted binary payloads.
	DefaultOutputDir = "cdp-output"

	// DefaultCommandTimeout bounds each forwarded command.
	DefaultCommandTimeout = 10 * time.Second
)
