package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/giantswarm/mcp-cdp/internal/cdp"
	"github.com/giantswarm/mcp-cdp/internal/extract"
)

// Gateway ties target discovery, the CDP transport client, and the
// binary extraction pass together behind a single Execute operation.
// It maintains at most one live connection, established lazily on the
// first command and rebuilt from scratch after any loss.
type Gateway struct {
	chromeURL string
	outputDir string
	timeout   time.Duration
	logger    *Logger

	mu        sync.Mutex
	client    *cdp.Client
	logEvents bool
}

// GatewayConfig holds configuration for creating a Gateway.
type GatewayConfig struct {
	// ChromeURL is the browser's HTTP debugging endpoint, e.g.
	// http://localhost:9222.
	ChromeURL string

	// OutputDir receives binary payloads diverted out of responses.
	OutputDir string

	// CommandTimeout bounds each forwarded command. Zero means the
	// transport default.
	CommandTimeout time.Duration

	Logger *Logger
}

// NewGateway creates a gateway from a configuration. No connection is
// made until the first command.
func NewGateway(cfg GatewayConfig) *Gateway {
	chromeURL := cfg.ChromeURL
	if chromeURL == "" {
		chromeURL = DefaultChromeURL
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Gateway{
		chromeURL: chromeURL,
		outputDir: outputDir,
		timeout:   cfg.CommandTimeout,
		logger:    cfg.Logger,
		logEvents: true,
	}
}

// Execute forwards one protocol command to the connected page and
// returns the processed response as pretty-printed JSON text. Large
// binary fields in the response are replaced by file references.
// Protocol-level errors reported by the browser are part of that text,
// not Go errors; everything transport-level comes back as an error.
func (g *Gateway) Execute(ctx context.Context, method string, params any) (string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	g.logger.Request(method, params)

	resp, err := client.SendCommand(ctx, method, params)
	if err != nil {
		g.logger.Error("Command %s failed: %v", method, err)
		return "", err
	}

	g.logger.Response(method, resp)

	out := make(map[string]any)
	if resp.Error != nil {
		out["error"] = map[string]any{
			"code":    resp.Error.Code,
			"message": resp.Error.Message,
		}
	}
	if len(resp.Result) > 0 {
		var result any
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return "", fmt.Errorf("malformed result payload for %s: %w", method, err)
		}
		out["result"] = extract.Process(result, extract.Options{OutputDir: g.OutputDir()})
	}

	return PrettyJSON(out), nil
}

// Targets enumerates the browser's debuggable page targets. The list
// is fetched fresh on every call.
func (g *Gateway) Targets(ctx context.Context) ([]cdp.Target, error) {
	targets, err := cdp.ListTargets(ctx, g.chromeURL)
	if err != nil {
		g.logger.Error("Target discovery failed: %v", err)
		return nil, err
	}
	return targets, nil
}

// Connected reports whether the gateway currently holds a live
// connection.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client != nil && g.client.Connected()
}

// SetEventLogging toggles diagnostic logging of unsolicited protocol
// events.
func (g *Gateway) SetEventLogging(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logEvents = enabled
}

// SetOutputDir redirects where extracted binary payloads are written.
// Takes effect for subsequent commands.
func (g *Gateway) SetOutputDir(dir string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputDir = dir
}

// OutputDir returns the current binary payload directory.
func (g *Gateway) OutputDir() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outputDir
}

// Close tears down the current connection, if any. The gateway remains
// usable; the next command reconnects.
func (g *Gateway) Close() {
	g.mu.Lock()
	client := g.client
	g.client = nil
	g.mu.Unlock()

	if client != nil {
		_ = client.Disconnect()
	}
}

// ensureClient returns a connected transport client, performing target
// discovery and dialing a fresh connection when there is none. A failed
// attempt leaves no partial state behind, so the next call retries
// discovery from scratch instead of reusing a broken client.
func (g *Gateway) ensureClient(ctx context.Context) (*cdp.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.client.Connected() {
		return g.client, nil
	}
	g.client = nil

	targets, err := cdp.ListTargets(ctx, g.chromeURL)
	if err != nil {
		g.logger.Error("Target discovery failed: %v", err)
		return nil, err
	}
	if len(targets) == 0 {
		g.logger.Error("No debuggable page targets at %s", g.chromeURL)
		return nil, cdp.ErrNoTargets
	}

	target := targets[0]
	g.logger.InfoVerbose("Connecting to target %q at %s", target.Title, target.WebSocketDebuggerURL)

	var opts []cdp.ClientOption
	if g.timeout > 0 {
		opts = append(opts, cdp.WithCommandTimeout(g.timeout))
	}
	client := cdp.NewClient(target.WebSocketDebuggerURL, opts...)
	client.OnEvent(func(ev cdp.Event) {
		g.mu.Lock()
		enabled := g.logEvents
		g.mu.Unlock()
		if enabled {
			g.logger.Notification(ev.Method, json.RawMessage(ev.Params))
		}
	})
	client.OnDisconnect(func(err error) {
		if err != nil {
			g.logger.Warning("Connection to %s lost: %v", target.URL, err)
		}
		g.invalidate(client)
	})

	if err := client.Connect(ctx); err != nil {
		g.logger.Error("Connection to %s failed: %v", target.URL, err)
		return nil, err
	}

	g.client = client
	g.logger.Success("Connected to %s", target.URL)
	return client, nil
}

// invalidate drops the cached client if it is still the current one,
// so the next command rebuilds the connection.
func (g *Gateway) invalidate(client *cdp.Client) {
	g.mu.Lock()
	if g.client == client {
		g.client = nil
	}
	g.mu.Unlock()
}
