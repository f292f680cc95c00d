// Package rethinkdriver is a client driver for RethinkDB: dial, authenticate,
// run a query, and iterate its results through a Cursor.
//
// A Connect call performs the V1_0/SCRAM handshake and starts a session that
// owns the socket for its lifetime; any number of queries can be run
// concurrently over that one session, each getting its own token and its own
// response stream. Run chooses the right Cursor implementation for the shape
// of response the query produced: a single value, a fully materialized
// sequence, a paginated stream, or a changefeed.
package rethinkdriver

import (
	"context"
	"fmt"

	"rethinkdriver/config"
	"rethinkdriver/internal/connection"
	"rethinkdriver/internal/cursor"
	"rethinkdriver/internal/errs"
	"rethinkdriver/internal/proto"
	"rethinkdriver/internal/response"
	"rethinkdriver/internal/session"
	"rethinkdriver/internal/term"
)

// Term is the opaque query-tree type Run accepts. Callers outside this
// module that build terms (a higher-level query-building layer) produce
// these; this driver never inspects a term's insides, only encodes it.
type Term = term.Term

// Cursor iterates over the results of a Run call.
type Cursor = cursor.Cursor

// Session is a single authenticated connection to a RethinkDB server.
type Session struct {
	s *session.Session
}

// Connect dials a server and authenticates, returning a ready-to-use Session.
// With no options, it dials localhost:28015 as the admin user against the
// test database.
func Connect(ctx context.Context, opts ...config.Option) (*Session, error) {
	cfg := config.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	s, err := session.Dial(dialCtx, session.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		TLSConfig: cfg.TLSConfig,
	}, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &Session{s: s}, nil
}

// Close terminates the underlying connection, unblocking every Cursor
// currently reading from it with an error.
func (sess *Session) Close() error {
	return sess.s.Close()
}

// UseDB changes the default database new Run calls target when no "db" run
// option is given explicitly.
func (sess *Session) UseDB(name string) {
	sess.s.UseDB(name)
}

// ServerInfo reports the identity of the connected server.
func (sess *Session) ServerInfo(ctx context.Context) (*session.ServerInfo, error) {
	return sess.s.ServerInfo(ctx)
}

// NoreplyWait blocks until every query issued with the noreply run option on
// this session prior to this call has been acknowledged by the server.
func (sess *Session) NoreplyWait(ctx context.Context) error {
	return sess.s.NoreplyWait(ctx)
}

// RunOpts are the per-query run options, merged over the session's default
// database. See Run for how "noreply" is handled.
type RunOpts map[string]interface{}

// Run sends t as a new query and returns a Cursor over its results. The opts
// "db" (string) selects a database for this query alone; "noreply" (bool),
// when true, returns a nil Cursor immediately without waiting for the
// server's acknowledgement.
func (sess *Session) Run(ctx context.Context, t Term, opts RunOpts) (Cursor, error) {
	runOpts := sess.mergeOpts(opts)
	noreply, _ := runOpts["noreply"].(bool)

	payload, err := term.BuildQuery(proto.QueryStart, t, term.OptArgs(runOpts))
	if err != nil {
		return nil, fmt.Errorf("rethinkdriver: build query: %w", err)
	}

	conn, err := sess.s.OpenConnection()
	if err != nil {
		return nil, err
	}

	if err := conn.Send(payload); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if noreply {
		_ = conn.Close()
		return nil, nil
	}

	select {
	case resp, ok := <-conn.Responses():
		if !ok {
			return nil, fmt.Errorf("rethinkdriver: connection closed before response")
		}
		return sess.makeCursor(ctx, conn, resp)
	case <-ctx.Done():
		_ = conn.CloseWithOptions(false)
		return nil, ctx.Err()
	}
}

func (sess *Session) mergeOpts(opts RunOpts) map[string]interface{} {
	merged := make(map[string]interface{}, len(opts)+1)
	for k, v := range opts {
		merged[k] = v
	}
	if _, ok := merged["db"]; !ok {
		if db := sess.s.Database(); db != "" {
			merged["db"] = db
		}
	}
	return merged
}

// makeCursor picks the Cursor implementation matching resp's shape, acquiring
// the session's single change-feed slot when resp is a feed.
func (sess *Session) makeCursor(ctx context.Context, conn *connection.Connection, resp *response.Response) (Cursor, error) {
	if err := response.MapError(resp); err != nil {
		_ = conn.Close()
		return nil, err
	}

	switch resp.Type {
	case proto.ResponseSuccessAtom:
		_ = conn.Close()
		return cursor.NewAtom(resp), nil
	case proto.ResponseSuccessSequence:
		_ = conn.Close()
		return cursor.NewSequence(resp), nil
	case proto.ResponseSuccessPartial:
		send := sess.makeSend(conn)
		if isFeed(resp) {
			if !sess.s.TryAcquireChangeFeed(conn.Token()) {
				_ = conn.CloseWithOptions(false)
				return nil, errs.ErrConnectionLocked
			}
			return cursor.NewChangefeed(ctx, resp, conn.Responses(), send), nil
		}
		return cursor.NewStream(ctx, resp, conn.Responses(), send), nil
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("rethinkdriver: unexpected response type %d", resp.Type)
	}
}

// makeSend builds the closure cursor.NewStream/NewChangefeed use to issue
// CONTINUE/STOP frames on conn's token.
func (sess *Session) makeSend(conn *connection.Connection) func(proto.QueryType) error {
	return func(qt proto.QueryType) error {
		switch qt {
		case proto.QueryContinue:
			payload, err := term.BuildQuery(proto.QueryContinue, term.Term{}, nil)
			if err != nil {
				return err
			}
			return conn.Send(payload)
		case proto.QueryStop:
			return conn.CloseWithOptions(false)
		default:
			return fmt.Errorf("rethinkdriver: unsupported cursor query type %d", qt)
		}
	}
}

// isFeed reports whether resp carries one of the feed notes that mark it as
// an infinite changefeed rather than a finite paginated stream.
func isFeed(resp *response.Response) bool {
	for _, n := range resp.Notes {
		switch n {
		case proto.NoteSequenceFeed, proto.NoteAtomFeed, proto.NoteOrderByLimitFeed, proto.NoteUnionedFeed, proto.NoteIncludesStates:
			return true
		}
	}
	return false
}
