package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/giantswarm/mcp-cdp/internal/cdp"
)

// respondFunc scripts the mock browser's reply to one protocol command.
type respondFunc func(method string, params json.RawMessage) (json.RawMessage, *cdp.ResponseError)

// mockBrowser simulates a browser's remote debugging surface: an HTTP
// target directory at /json/list plus a WebSocket endpoint that answers
// protocol commands through a scripted responder.
type mockBrowser struct {
	*httptest.Server
	t *testing.T

	respond respondFunc

	mu          sync.Mutex
	noTargets   bool
	connections int
}

// newMockBrowser starts a mock browser whose command replies come from
// the given responder.
func newMockBrowser(t *testing.T, respond respondFunc) *mockBrowser {
	t.Helper()

	mb := &mockBrowser{
		t:       t,
		respond: respond,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/list", mb.handleTargetList)
	mux.HandleFunc("/devtools/page/", mb.handleDebugger)

	mb.Server = httptest.NewServer(mux)
	t.Cleanup(mb.Close)
	return mb
}

// SetNoTargets makes the directory report no page targets.
func (mb *mockBrowser) SetNoTargets(empty bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.noTargets = empty
}

// ConnectionCount returns how many WebSocket connections were accepted.
func (mb *mockBrowser) ConnectionCount() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.connections
}

// handleTargetList serves the target directory. It always includes
// non-page targets so callers exercise the page filter.
func (mb *mockBrowser) handleTargetList(w http.ResponseWriter, r *http.Request) {
	mb.mu.Lock()
	empty := mb.noTargets
	mb.mu.Unlock()

	wsBase := "ws" + strings.TrimPrefix(mb.URL, "http")

	targets := []cdp.Target{
		{
			ID:                   "WORKER1",
			Type:                 "worker",
			Title:                "Service Worker",
			URL:                  "https://example.com/sw.js",
			WebSocketDebuggerURL: wsBase + "/devtools/page/WORKER1",
		},
	}
	if !empty {
		targets = append(targets, cdp.Target{
			ID:                   "PAGE1",
			Type:                 "page",
			Title:                "Example",
			URL:                  "https://example.com/",
			WebSocketDebuggerURL: wsBase + "/devtools/page/PAGE1",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(targets)
}

// handleDebugger upgrades to WebSocket and answers commands until the
// client disconnects.
func (mb *mockBrowser) handleDebugger(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		mb.t.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	mb.mu.Lock()
	mb.connections++
	mb.mu.Unlock()

	for {
		var cmd struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		result, respErr := mb.respond(cmd.Method, cmd.Params)
		reply := map[string]any{"id": cmd.ID}
		if respErr != nil {
			reply["error"] = respErr
		} else {
			reply["result"] = json.RawMessage(result)
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// echoResponder replies to every command with a fixed result keyed by
// method, or a method-not-found error for anything unlisted.
func echoResponder(results map[string]string) respondFunc {
	return func(method string, params json.RawMessage) (json.RawMessage, *cdp.ResponseError) {
		result, ok := results[method]
		if !ok {
			return nil, &cdp.ResponseError{Code: -32601, Message: fmt.Sprintf("'%s' wasn't found", method)}
		}
		return json.RawMessage(result), nil
	}
}

// newTestGateway builds a gateway against the mock browser with
// diagnostics discarded.
func newTestGateway(t *testing.T, mb *mockBrowser, outputDir string) *Gateway {
	t.Helper()

	gateway := NewGateway(GatewayConfig{
		ChromeURL: mb.URL,
		OutputDir: outputDir,
		Logger:    NewLoggerWithWriter(false, false, false, io.Discard),
	})
	t.Cleanup(gateway.Close)
	return gateway
}
