package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// ANSI escape sequences for colored output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Logger provides formatted diagnostic output with optional color and
// protocol message tracing. It writes to stderr by default so
// diagnostics never interleave with the MCP stdio transport on stdout.
type Logger struct {
	mu          sync.Mutex
	verbose     bool
	useColor    bool
	jsonRPCMode bool
	writer      io.Writer
}

// NewLogger creates a logger writing to stderr.
func NewLogger(verbose, useColor, jsonRPCMode bool) *Logger {
	return NewLoggerWithWriter(verbose, useColor, jsonRPCMode, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to the given writer.
// Used by tests to capture output.
func NewLoggerWithWriter(verbose, useColor, jsonRPCMode bool, w io.Writer) *Logger {
	return &Logger{
		verbose:     verbose,
		useColor:    useColor,
		jsonRPCMode: jsonRPCMode,
		writer:      w,
	}
}

// SetVerbose toggles verbose output at runtime.
func (l *Logger) SetVerbose(verbose bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// SetWriter redirects subsequent output to w.
func (l *Logger) SetWriter(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// logf renders one line, applying color when enabled.
func (l *Logger) logf(color, prefix, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := prefix + fmt.Sprintf(format, args...)
	if l.useColor && color != "" {
		fmt.Fprintf(l.writer, "%s%s%s\n", color, msg, colorReset)
	} else {
		fmt.Fprintf(l.writer, "%s\n", msg)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(colorBlue, "", format, args...)
}

// InfoVerbose logs an informational message only in verbose mode.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if l == nil || !l.isVerbose() {
		return
	}
	l.Info(format, args...)
}

// Success logs a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.logf(colorGreen, "✓ ", format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logf(colorYellow, "⚠ ", format, args...)
}

// WarningVerbose logs a warning only in verbose mode.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if l == nil || !l.isVerbose() {
		return
	}
	l.Warning(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(colorRed, "✗ ", format, args...)
}

// Debug logs a message only in verbose mode.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil || !l.isVerbose() {
		return
	}
	l.logf(colorGray, "[debug] ", format, args...)
}

// Request traces an outbound protocol request. The full payload is
// included only in JSON-RPC tracing mode.
func (l *Logger) Request(method string, payload interface{}) {
	if l == nil {
		return
	}
	if l.isJSONRPCMode() {
		l.logf(colorCyan, "→ ", "%s %s", method, PrettyJSON(payload))
		return
	}
	l.logf(colorCyan, "→ ", "%s", method)
}

// Response traces an inbound protocol response.
func (l *Logger) Response(method string, payload interface{}) {
	if l == nil {
		return
	}
	if l.isJSONRPCMode() {
		l.logf(colorCyan, "← ", "%s %s", method, PrettyJSON(payload))
		return
	}
	l.logf(colorCyan, "← ", "%s", method)
}

// Notification traces an unsolicited protocol event.
func (l *Logger) Notification(method string, payload interface{}) {
	if l == nil {
		return
	}
	if l.isJSONRPCMode() {
		l.logf(colorPurple, "⚡ ", "%s %s", method, PrettyJSON(payload))
		return
	}
	l.logf(colorPurple, "⚡ ", "%s", method)
}

func (l *Logger) isVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

func (l *Logger) isJSONRPCMode() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jsonRPCMode
}

// PrettyJSON pretty-prints a value for logging and tool output.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
