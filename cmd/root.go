package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-cdp/internal/agent"
)

// Supported server transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

var (
	version string

	chromeURL       string
	outputDir       string
	commandTimeout  time.Duration
	serverTransport string
	listenAddr      string
	verbose         bool
	noColor         bool
	jsonRPC         bool
	repl            bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcp-cdp",
	Short: "MCP server relaying Chrome DevTools Protocol commands",
	Long: `mcp-cdp exposes the Chrome DevTools Protocol to AI assistants as an MCP tool.

It connects to a browser started with --remote-debugging-port, picks the
first debuggable page target, and forwards arbitrary protocol commands
over a persistent WebSocket connection. Responses come back as
pretty-printed JSON; large base64 payloads (screenshots, PDFs, captured
response bodies) are saved to the output directory and replaced with
file references so tool output stays small.

The tool supports two modes:
- MCP Server mode (default): Serve the cdp_command and list_targets
  tools over stdio or streamable-http for integration with AI assistants
- REPL mode (--repl): Issue protocol commands interactively

The relay is protocol-agnostic: any method the browser understands can
be forwarded, e.g.

  cdp_command method=Runtime.evaluate params={"expression": "1+1"}
  cdp_command method=Page.captureScreenshot

By default, it discovers targets at http://localhost:9222. You can
override this with the --chrome-url flag.`,
	RunE: runMCPCDP,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	// Add flags
	rootCmd.Flags().StringVar(&chromeURL, "chrome-url", agent.DefaultChromeURL, "Browser HTTP debugging endpoint used for target discovery")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", agent.DefaultOutputDir, "Directory receiving binary payloads extracted from responses")
	rootCmd.Flags().DurationVar(&commandTimeout, "command-timeout", agent.DefaultCommandTimeout, "Per-command deadline for awaiting a correlated response")
	rootCmd.Flags().StringVar(&serverTransport, "server-transport", transportStdio, "Transport protocol for the MCP server itself (stdio, streamable-http)")
	rootCmd.Flags().StringVar(&listenAddr, "listen-addr", ":8899", "Listen address for streamable-http server (path is fixed to /mcp)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&jsonRPC, "json-rpc", false, "Enable full protocol message logging")
	rootCmd.Flags().BoolVar(&repl, "repl", false, "Start interactive REPL mode")

	// Add subcommands
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// validateTransport validates the transport configuration
func validateTransport() error {
	if serverTransport != transportStdio && serverTransport != transportStreamableHTTP {
		return fmt.Errorf("unsupported server transport '%s' (stdio, streamable-http)", serverTransport)
	}
	return nil
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if repl {
			fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		}
		cancel()
	}()
}

// runMCPServer runs the relay in MCP server mode
func runMCPServer(ctx context.Context, gateway *agent.Gateway, logger *agent.Logger) error {
	server, err := agent.NewMCPServer(gateway, serverTransport, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("Starting mcp-cdp MCP server (transport: %s)...", serverTransport)
	if serverTransport == transportStreamableHTTP {
		addr := listenAddr
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		logger.Info("Listening on %s%s", addr, "/mcp")
	}

	if err := server.Start(ctx, listenAddr); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func runMCPCDP(cmd *cobra.Command, args []string) error {
	if err := validateTransport(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	setupSignalHandler(cancel)

	logger := agent.NewLogger(verbose, !noColor, jsonRPC)

	gateway := agent.NewGateway(agent.GatewayConfig{
		ChromeURL:      chromeURL,
		OutputDir:      outputDir,
		CommandTimeout: commandTimeout,
		Logger:         logger,
	})
	defer gateway.Close()

	if repl {
		replHandler := agent.NewREPL(gateway, logger)
		if err := replHandler.Run(ctx); err != nil {
			return fmt.Errorf("REPL error: %w", err)
		}
		return nil
	}

	return runMCPServer(ctx, gateway, logger)
}
