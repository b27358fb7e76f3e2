package cdp

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for connection state misuse and empty discovery.
var (
	// ErrNotConnected is returned when sending on a client that has no
	// live connection.
	ErrNotConnected = errors.New("cdp: not connected")

	// ErrAlreadyConnected is returned by Connect on a client that is
	// already connected. Disconnect first.
	ErrAlreadyConnected = errors.New("cdp: already connected")

	// ErrNoTargets indicates discovery succeeded but returned no
	// debuggable page targets.
	ErrNoTargets = errors.New("cdp: no debuggable page targets available")
)

// ConnectionError reports a transport-level failure, either during the
// initial handshake or mid-flight. Callers should treat the connection
// as gone and establish a fresh one.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cdp: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that a single in-flight command exceeded its
// response deadline. Only that command failed; the connection itself
// remains usable.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cdp: timed out after %s waiting for response to %s", e.Timeout, e.Method)
}

// DiscoveryError reports a failure to read or parse the browser's
// target directory endpoint.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("cdp: target discovery against %s failed: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
