// Package session owns a single authenticated RethinkDB TCP connection: the
// write mutex, the monotonic token allocator, the routing table that
// demultiplexes the one reader goroutine's frames back to their issuing
// caller, and the single-change-feed-per-session lock.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rethinkdriver/internal/connection"
	"rethinkdriver/internal/errs"
	"rethinkdriver/internal/proto"
	"rethinkdriver/internal/response"
	"rethinkdriver/internal/wire"
)

// Config holds the parameters used to dial and authenticate a session.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	TLSConfig *tls.Config // nil for a plain TCP connection
}

// String returns Config without the password, safe to log.
func (c Config) String() string {
	return fmt.Sprintf("session{%s:%d user=%s db=%s}", c.Host, c.Port, c.User, c.Database)
}

func (c Config) addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Session is a single authenticated connection to a RethinkDB server. It is
// safe for concurrent use: many query-lifecycle Connections can be leased
// from the same Session and run concurrently over the one socket.
type Session struct {
	id     string
	nc     net.Conn
	log    *logrus.Logger
	cfg    Config

	writeMu sync.Mutex

	mu       sync.Mutex
	routes   map[uint64]chan connection.Frame
	broken   error
	feedOwner uint64 // token of the connection owning the active change feed, 0 = none

	nextToken atomic.Uint64
	done      chan struct{}
}

// Dial connects to addr (plain TCP, or TLS when cfg.TLSConfig is set),
// performs the V1_0/SCRAM handshake, and starts the session's demultiplexing
// reader goroutine. log may be nil, in which case logrus.StandardLogger() is used.
func Dial(ctx context.Context, cfg Config, log *logrus.Logger) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	addr := cfg.addr()
	var nc net.Conn
	var err error
	if cfg.TLSConfig != nil {
		nc, err = DialTLS(ctx, addr, cfg.TLSConfig)
	} else {
		nc, err = dialTCP(ctx, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", addr, err)
	}

	type hsResult struct{ err error }
	hsC := make(chan hsResult, 1)
	go func() {
		hsC <- hsResult{err: Handshake(nc, cfg.User, cfg.Password)}
	}()

	select {
	case <-ctx.Done():
		_ = nc.Close()
		<-hsC
		return nil, fmt.Errorf("session: dial %s: %w", addr, ctx.Err())
	case res := <-hsC:
		if res.err != nil {
			_ = nc.Close()
			return nil, fmt.Errorf("session: dial %s: %w", addr, res.err)
		}
	}

	s := newSession(nc, cfg, log)
	logrus.Debugf("rethinkdriver: session %s established to %s", s.id, addr)
	return s, nil
}

// dialTCP opens a plain TCP connection, respecting ctx cancellation.
func dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{}
	return d.DialContext(ctx, "tcp", addr)
}

// DialTLS opens a TCP connection to addr and performs the TLS handshake,
// without any RethinkDB-level handshake. Exported so callers (and tests) can
// establish a bare encrypted socket independent of session authentication.
func DialTLS(ctx context.Context, addr string, tlsCfg *tls.Config) (net.Conn, error) {
	d := &net.Dialer{}
	td := tls.Dialer{NetDialer: d, Config: tlsCfg}
	return td.DialContext(ctx, "tcp", addr)
}

func newSession(nc net.Conn, cfg Config, log *logrus.Logger) *Session {
	s := &Session{
		id:     uuid.NewString(),
		nc:     nc,
		log:    log,
		cfg:    cfg,
		routes: make(map[uint64]chan connection.Frame),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// ID returns the session's log-correlation identifier.
func (s *Session) ID() string { return s.id }

// Database returns the default database selected for this session.
func (s *Session) Database() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Database
}

// UseDB changes the default database for subsequently built queries. It does
// not affect queries already in flight.
func (s *Session) UseDB(name string) {
	s.mu.Lock()
	s.cfg.Database = name
	s.mu.Unlock()
}

// leaseToken allocates the next query token. Tokens never recycle for the
// life of a session; wraparound marks the session permanently broken, since
// a reused token could be routed to the wrong caller.
func (s *Session) leaseToken() (uint64, error) {
	tok := s.nextToken.Add(1)
	if tok == 0 {
		s.fail(fmt.Errorf("session: token space exhausted"))
		return 0, s.brokenErr()
	}
	return tok, nil
}

// OpenConnection leases a fresh token and returns the Connection that owns
// it, registered in the routing table so the reader goroutine can start
// delivering frames for it immediately.
func (s *Session) OpenConnection() (*connection.Connection, error) {
	s.mu.Lock()
	if s.broken != nil {
		err := s.broken
		s.mu.Unlock()
		return nil, err
	}
	if s.feedOwner != 0 {
		s.mu.Unlock()
		return nil, errs.ErrConnectionLocked
	}
	s.mu.Unlock()

	token, err := s.leaseToken()
	if err != nil {
		return nil, err
	}

	ch := make(chan connection.Frame, 1)
	s.mu.Lock()
	if s.broken != nil {
		s.mu.Unlock()
		return nil, s.broken
	}
	if s.feedOwner != 0 {
		s.mu.Unlock()
		return nil, errs.ErrConnectionLocked
	}
	s.routes[token] = ch
	s.mu.Unlock()

	return connection.Open(s, token, ch), nil
}

// TryAcquireChangeFeed claims the session-wide change-feed lock for token.
// It fails if another connection already owns one, per the one-feed-per-
// session invariant.
func (s *Session) TryAcquireChangeFeed(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedOwner != 0 && s.feedOwner != token {
		return false
	}
	s.feedOwner = token
	return true
}

// IsChangeFeedOwner reports whether token currently owns the change-feed lock.
func (s *Session) IsChangeFeedOwner(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedOwner == token
}

// ReleaseChangeFeed clears the change-feed lock if token owns it.
func (s *Session) ReleaseChangeFeed(token uint64) {
	s.mu.Lock()
	if s.feedOwner == token {
		s.feedOwner = 0
	}
	s.mu.Unlock()
}

// WriteFrame serializes a wire frame under token. Writes from many
// goroutines are safe: they're serialized behind writeMu.
func (s *Session) WriteFrame(token uint64, payload []byte) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken != nil {
		return broken
	}
	s.writeMu.Lock()
	err := wire.WriteQuery(s.nc, token, payload)
	s.writeMu.Unlock()
	if err != nil {
		err = fmt.Errorf("session: write: %w", err)
		s.fail(err)
		return err
	}
	return nil
}

// Unregister removes token's route. Call when a Connection is done with its
// token (normal completion or explicit Close).
func (s *Session) Unregister(token uint64) {
	s.mu.Lock()
	ch, ok := s.routes[token]
	if ok {
		delete(s.routes, token)
	}
	s.mu.Unlock()
	if ok {
		close(ch)
	}
}

// readLoop is the session's single reader goroutine. It owns all reads from
// nc and is the only goroutine permitted to call wire.ReadResponse.
func (s *Session) readLoop() {
	defer close(s.done)
	for {
		token, payload, err := wire.ReadResponse(s.nc)
		if err != nil {
			s.fail(fmt.Errorf("session: read: %w", err))
			return
		}
		s.dispatch(token, payload)
	}
}

// dispatch routes a decoded frame to its registered channel. A frame for an
// unknown token (already unregistered, e.g. after Close) is discarded.
func (s *Session) dispatch(token uint64, payload []byte) {
	s.mu.Lock()
	ch, ok := s.routes[token]
	s.mu.Unlock()
	if !ok {
		s.log.Debugf("rethinkdriver: session %s: dropped frame for unknown token %d", s.id, token)
		return
	}
	select {
	case ch <- connection.Frame{Payload: payload}:
	default:
		s.log.Warnf("rethinkdriver: session %s: token %d consumer not keeping up, dropping batch", s.id, token)
	}
}

// fail marks the session permanently broken and delivers cause to every
// outstanding route, mirroring readLoop's behavior on socket death.
func (s *Session) fail(cause error) {
	s.mu.Lock()
	if s.broken != nil {
		s.mu.Unlock()
		return
	}
	s.broken = fmt.Errorf("%w: %v", errs.ErrConnectionBroken, cause)
	routes := s.routes
	s.routes = make(map[uint64]chan connection.Frame)
	s.mu.Unlock()

	s.log.Errorf("rethinkdriver: session %s broken: %v", s.id, cause)
	for _, ch := range routes {
		select {
		case ch <- connection.Frame{Err: s.broken}:
		default:
		}
		close(ch)
	}
	_ = s.nc.Close()
}

func (s *Session) brokenErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

// Close closes the underlying socket and waits for the reader goroutine to
// exit, delivering a broken-connection error to every outstanding route.
func (s *Session) Close() error {
	s.fail(fmt.Errorf("session: closed"))
	<-s.done
	return nil
}

// ServerInfo describes the connected RethinkDB server (response to query type 5).
type ServerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Proxy   bool   `json:"proxy"`
}

// ServerInfo issues a SERVER_INFO query on a throwaway token.
func (s *Session) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	results, err := s.roundTrip(ctx, []byte(fmt.Sprintf(`[%d]`, proto.QueryServerInfo)))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("session: empty server info response")
	}
	var info ServerInfo
	if err := json.Unmarshal(results[0], &info); err != nil {
		return nil, fmt.Errorf("session: parse server info: %w", err)
	}
	return &info, nil
}

// NoreplyWait blocks until every noreply query issued before this call on
// this session has been acknowledged by the server.
func (s *Session) NoreplyWait(ctx context.Context) error {
	_, err := s.roundTrip(ctx, []byte(fmt.Sprintf(`[%d]`, proto.QueryNoreplyWait)))
	return err
}

// roundTrip leases a token, writes payload, waits for the first response,
// and releases the token. Used for the single-shot SERVER_INFO and
// NOREPLY_WAIT control queries.
func (s *Session) roundTrip(ctx context.Context, payload []byte) ([]json.RawMessage, error) {
	c, err := s.OpenConnection()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if err := c.Send(payload); err != nil {
		return nil, err
	}
	select {
	case resp, ok := <-c.Responses():
		if !ok {
			return nil, fmt.Errorf("session: connection closed before response")
		}
		if mapErr := response.MapError(resp); mapErr != nil {
			return nil, mapErr
		}
		return resp.Results, nil
	case <-ctx.Done():
		_ = c.CloseWithOptions(false)
		return nil, ctx.Err()
	}
}
