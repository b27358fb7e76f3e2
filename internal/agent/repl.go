package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// errExit is a sentinel error used to signal REPL exit
var errExit = errors.New("exit")

// commonMethods seeds tab completion for the send command with
// frequently used protocol methods. Any method can still be typed.
var commonMethods = []string{
	"Page.navigate",
	"Page.reload",
	"Page.captureScreenshot",
	"Page.printToPDF",
	"Runtime.evaluate",
	"DOM.getDocument",
	"Network.enable",
	"Network.disable",
	"Emulation.setDeviceMetricsOverride",
}

// REPL provides an interactive console for issuing protocol commands
// against the connected page.
type REPL struct {
	gateway         *Gateway
	logger          *Logger
	rl              *readline.Instance
	commandHandlers map[string]commandHandler
}

// NewREPL creates a new REPL instance
func NewREPL(gateway *Gateway, logger *Logger) *REPL {
	r := &REPL{
		gateway: gateway,
		logger:  logger,
	}
	r.commandHandlers = r.buildCommandHandlers()
	return r
}

// Run starts the REPL
func (r *REPL) Run(ctx context.Context) error {
	// Set up readline with tab completion
	completer := r.createCompleter()
	historyFile := filepath.Join(os.TempDir(), ".mcp_cdp_history")

	config := &readline.Config{
		Prompt:          "CDP> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer func() { _ = rl.Close() }()
	r.rl = rl

	// Display welcome message
	r.logger.Info("CDP REPL started. Type 'help' for available commands. Use TAB for completion.")
	fmt.Println()

	// Main REPL loop
	for {
		// Check if context is cancelled
		select {
		case <-ctx.Done():
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		// Read input
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		// Parse and execute command
		if err := r.executeCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		fmt.Println()
	}
}

// createCompleter creates the tab completion configuration
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	methodItems := make([]readline.PrefixCompleterInterface, len(commonMethods))
	for i, method := range commonMethods {
		methodItems[i] = readline.PcItem(method)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("targets"),
		readline.PcItem("send", methodItems...),
		readline.PcItem("events",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
		readline.PcItem("output"),
	)
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// commandHandler defines a REPL command with its handler and argument
// requirements
type commandHandler struct {
	minArgs int
	usage   string
	handler func(ctx context.Context, parts []string) error
}

// buildCommandHandlers creates the map of command handlers
func (r *REPL) buildCommandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"help": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.showHelp()
		}},
		"?": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.showHelp()
		}},
		"exit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"quit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"targets": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.handleTargets(ctx)
		}},
		"send": {
			minArgs: 2,
			usage:   "usage: send <method> [json-params]",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleSend(ctx, parts[1], strings.Join(parts[2:], " "))
			},
		},
		"events": {
			minArgs: 2,
			usage:   "usage: events <on|off>",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleEvents(parts[1])
			},
		},
		"output": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.handleOutput(parts[1:])
		}},
	}
}

// executeCommand parses and runs one line of input
func (r *REPL) executeCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	cmd, ok := r.commandHandlers[parts[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", parts[0])
	}
	if len(parts) < cmd.minArgs {
		fmt.Println(cmd.usage)
		return nil
	}
	return cmd.handler(ctx, parts)
}

// showHelp displays the available commands
func (r *REPL) showHelp() error {
	fmt.Println("Available commands:")
	fmt.Println("  targets                     List the browser's debuggable page targets")
	fmt.Println("  send <method> [json]        Forward a protocol command, e.g.:")
	fmt.Println("                                send Runtime.evaluate {\"expression\": \"1+1\"}")
	fmt.Println("                                send Page.captureScreenshot")
	fmt.Println("  events <on|off>             Toggle display of unsolicited protocol events")
	fmt.Println("  output [dir]                Show or change where binary payloads are saved")
	fmt.Println("  help, ?                     Show this help")
	fmt.Println("  exit, quit                  Leave the REPL")
	return nil
}

// handleTargets lists the debuggable page targets
func (r *REPL) handleTargets(ctx context.Context) error {
	targets, err := r.gateway.Targets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("No debuggable page targets.")
		return nil
	}
	for i, t := range targets {
		fmt.Printf("%d. %s\n   %s\n", i+1, t.Title, t.URL)
	}
	return nil
}

// handleSend forwards one protocol command
func (r *REPL) handleSend(ctx context.Context, method, paramsStr string) error {
	var params any = map[string]any{}
	if paramsStr != "" {
		if err := json.Unmarshal([]byte(paramsStr), &params); err != nil {
			fmt.Println("Error: Parameters must be valid JSON")
			fmt.Printf("Example: send %s {\"param1\": \"value1\"}\n", method)
			return fmt.Errorf("invalid JSON parameters: %w", err)
		}
	}

	text, err := r.gateway.Execute(ctx, method, params)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

// handleOutput shows or changes the binary payload directory
func (r *REPL) handleOutput(args []string) error {
	if len(args) == 0 {
		fmt.Printf("Binary payloads are saved to: %s\n", r.gateway.OutputDir())
		return nil
	}
	r.gateway.SetOutputDir(args[0])
	fmt.Printf("Binary payloads will be saved to: %s\n", args[0])
	return nil
}

// handleEvents toggles event display
func (r *REPL) handleEvents(mode string) error {
	switch mode {
	case "on":
		r.gateway.SetEventLogging(true)
		fmt.Println("Event display enabled.")
	case "off":
		r.gateway.SetEventLogging(false)
		fmt.Println("Event display disabled.")
	default:
		return fmt.Errorf("unknown mode: %s (expected 'on' or 'off')", mode)
	}
	return nil
}
