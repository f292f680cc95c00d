// Package connection implements the scoped, per-query token lease a session
// hands out for the lifetime of a single Run call: registering a route for
// its token, turning raw wire frames back into parsed responses, and
// releasing the change-feed lock on close when it owns one.
package connection

import (
	"encoding/json"
	"fmt"
	"sync"

	"rethinkdriver/internal/proto"
	"rethinkdriver/internal/response"
)

// Frame is a raw wire payload routed to a connection's token, or the
// terminal error observed by the owning session (socket closed, read error).
type Frame struct {
	Payload []byte
	Err     error
}

// Handle is the subset of session behavior a Connection needs. A *session.Session
// satisfies it; the interface exists so the two packages don't import each other.
type Handle interface {
	WriteFrame(token uint64, payload []byte) error
	Unregister(token uint64)
	ReleaseChangeFeed(token uint64)
	IsChangeFeedOwner(token uint64) bool
}

// Connection is a leased query token: the handle to send CONTINUE/STOP frames
// and the parsed response stream for that token alone.
type Connection struct {
	handle Handle
	token  uint64

	responses chan *response.Response

	closeOnce sync.Once
}

// Open starts parsing raw onto a *response.Response stream scoped to token.
func Open(handle Handle, token uint64, raw <-chan Frame) *Connection {
	c := &Connection{
		handle:    handle,
		token:     token,
		responses: make(chan *response.Response, 1),
	}
	go c.parseLoop(raw)
	return c
}

// Token returns the query token this connection owns.
func (c *Connection) Token() uint64 { return c.token }

// Responses returns the channel of parsed responses for this connection's
// token. It is closed after the first response that is not SUCCESS_PARTIAL
// (including an error response or the synthetic CLIENT_ERROR for a transport
// failure), or once the underlying raw channel closes (session broke, or the
// token was unregistered).
func (c *Connection) Responses() <-chan *response.Response {
	return c.responses
}

// parseLoop decodes each raw frame into a *response.Response, surfacing
// transport failures as a synthetic CLIENT_ERROR response so cursors reading
// only the response channel still observe the failure.
func (c *Connection) parseLoop(raw <-chan Frame) {
	defer close(c.responses)
	for f := range raw {
		if f.Err != nil {
			c.responses <- errResponse(f.Err)
			return
		}
		resp, err := response.Parse(f.Payload)
		if err != nil {
			c.responses <- errResponse(fmt.Errorf("connection: parse response: %w", err))
			return
		}
		c.responses <- resp
		if resp.Type.IsError() || resp.Type != proto.ResponseSuccessPartial {
			return
		}
		// PARTIAL: keep parsing subsequent batches delivered after CONTINUE.
	}
}

func errResponse(err error) *response.Response {
	msg, _ := json.Marshal(err.Error())
	return &response.Response{
		Type:    proto.ResponseClientError,
		Results: []json.RawMessage{msg},
	}
}

// Send writes a frame under this connection's token without waiting for a reply.
func (c *Connection) Send(payload []byte) error {
	return c.handle.WriteFrame(c.token, payload)
}

// Close releases the token lease by removing its route. It sends nothing to
// the server unless the connection owns the active change feed, in which
// case it first sends STOP and clears the feed lock. Use CloseWithOptions
// for the unconditional STOP variant.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.handle.IsChangeFeedOwner(c.token) {
			err = c.handle.WriteFrame(c.token, []byte(`[3]`))
			c.handle.ReleaseChangeFeed(c.token)
		}
		c.handle.Unregister(c.token)
	})
	return err
}

// CloseWithOptions always sends STOP: [3,null,{"noreply":false}] when
// waitForReply is true, [3] otherwise. It returns once the frame is written
// and does not wait for a server reply; the route is removed either way.
func (c *Connection) CloseWithOptions(waitForReply bool) error {
	var err error
	c.closeOnce.Do(func() {
		payload := []byte(`[3]`)
		if waitForReply {
			payload = []byte(`[3,null,{"noreply":false}]`)
		}
		err = c.handle.WriteFrame(c.token, payload)
		if c.handle.IsChangeFeedOwner(c.token) {
			c.handle.ReleaseChangeFeed(c.token)
		}
		c.handle.Unregister(c.token)
	})
	return err
}
