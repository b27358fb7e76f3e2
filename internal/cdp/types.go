package cdp

import "encoding/json"

// Command is an outbound protocol request. The ID is assigned by the
// client and is used only to pair the eventual Response; it carries no
// business meaning.
type Command struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is a reply to exactly one prior Command, paired by ID.
// Exactly one of Result/Error is meaningful per the protocol's own
// convention; the client does not interpret which.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a protocol-level error reported by the browser.
// It is data carried inside a Response, not a transport failure.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Event is an unsolicited protocol notification. It has no ID and is
// never correlated to a Command.
type Event struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Target describes a debuggable browser target as reported by the
// /json/list directory endpoint. Only targets of type "page" accept
// relay commands.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}
