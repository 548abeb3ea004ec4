// Package collector implements the worker-side AF_UNIX client that
// streams framed JSON events to the downstream collector: non-blocking
// connect, half-closed read direction, an init_complete handshake, and
// reconnect-without-buffering on failure.
package collector

import (
	"fmt"
	"sync"

	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"

	"github.com/ndpid/ndpid-go/pkg/events"
)

// Client is one worker's connection to the collector socket. Its methods
// are serialized by an internal mutex; each worker owns exactly one.
type Client struct {
	path string

	mu           sync.Mutex
	conn         *socket.Conn
	needReconnect bool
}

// New creates a client bound to path. It does not connect until Send is
// first called, mirroring the worker's lazy-connect-on-demand behaviour.
func New(path string) *Client {
	return &Client{path: path, needReconnect: true}
}

// Connected reports whether the client currently holds a live socket.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.needReconnect
}

func (c *Client) connectLocked() error {
	conn, err := socket.New(unix.AF_UNIX, unix.SOCK_STREAM, 0, "ndpid-collector")
	if err != nil {
		return fmt.Errorf("collector: socket create: %w", err)
	}

	sa := &unix.SockaddrUnix{Name: c.path}
	if err := conn.Connect(sa); err != nil {
		_ = conn.Close()
		return fmt.Errorf("collector: connect %s: %w", c.path, err)
	}

	// Half-close the read direction: this client never consumes anything
	// the collector might send back.
	_ = conn.Shutdown(unix.SHUT_RD)

	c.conn = conn
	c.needReconnect = false

	handshake, err := events.Marshal(map[string]bool{"init_complete": true})
	if err != nil {
		return fmt.Errorf("collector: encode handshake: %w", err)
	}
	if err := c.sendLocked(handshake); err != nil {
		return fmt.Errorf("collector: handshake send: %w", err)
	}
	return nil
}

func (c *Client) sendLocked(payload []byte) error {
	var buf lengthPrefixedWriter
	if err := events.Frame(&buf, payload); err != nil {
		return err
	}
	_, err := c.conn.Write(buf.Bytes())
	if err != nil {
		c.needReconnect = true
	}
	return err
}

// Send frames and transmits one JSON event record. On any failure
// (including a failed reconnect attempt) the record is dropped: there is
// no buffering and no retry of historical events.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.needReconnect || c.conn == nil {
		if err := c.connectLocked(); err != nil {
			c.needReconnect = true
			return err
		}
	}
	return c.sendLocked(payload)
}

// Close releases the underlying socket, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// lengthPrefixedWriter is a tiny io.Writer adapter so events.Frame can
// build the wire record before a single Write call to the socket.
type lengthPrefixedWriter struct {
	b []byte
}

func (w *lengthPrefixedWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *lengthPrefixedWriter) Bytes() []byte { return w.b }
