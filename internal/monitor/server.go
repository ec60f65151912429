package monitor

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/aimon/internal/config"
	"github.com/muurk/aimon/internal/discovery"
	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/protocol"
	"github.com/muurk/aimon/internal/reactor"
)

// listenRetryInterval paces bind attempts while the activation gate is
// closed or the port is unavailable.
const listenRetryInterval = 2 * time.Second

// Option customizes a Server at construction time.
type Option func(*Server)

// WithActivationGate defers listening until fn reports true. The server
// polls the gate on its retry timer; this mirrors devices that must finish
// cloud activation before exposing debug services. The default gate is
// always open.
func WithActivationGate(fn func() bool) Option {
	return func(s *Server) {
		if fn != nil {
			s.activated = fn
		}
	}
}

// Server is the AI monitor: a TCP broadcast server that relays AI pipeline
// traffic to connected debugging clients and answers their ping and
// subscription requests.
//
// All network callbacks run on a single reactor loop. The mutex guards the
// session table and listener state against the relay entry points, which run
// on their callers' goroutines.
type Server struct {
	cfg       *config.Config
	loop      *reactor.Loop
	activated func() bool

	mu        sync.Mutex
	running   bool
	listener  net.Listener
	sessions  []*session
	count     int
	retry     *reactor.Timer
	sweep     *reactor.Timer
	announcer *discovery.Announcer

	// instanceID distinguishes this server run in logs and in the mDNS
	// instance name. seqSeed is the starting wire sequence for each new
	// client writer; seeding it randomly makes stale-peer frames from a
	// previous run detectable.
	instanceID uint32
	seqSeed    uint16
}

// New creates a monitor server for the given validated configuration.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		loop:       reactor.New(),
		activated:  func() bool { return true },
		instanceID: rand.Uint32(),
		seqSeed:    uint16(rand.Uint32()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the event loop and begins trying to bind the listener. It
// returns immediately; binding happens on the loop and is retried every two
// seconds until the activation gate opens and the port is available.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	s.running = true
	s.sessions = make([]*session, s.cfg.MaxClients)
	s.count = 0
	s.mu.Unlock()

	logging.Info("Starting AI monitor",
		zap.Uint32("instance_id", s.instanceID),
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.Int("max_clients", s.cfg.MaxClients),
		zap.Bool("broadcast", s.cfg.EnableBroadcast),
	)

	s.loop.Run()

	s.mu.Lock()
	s.retry = s.loop.Every(listenRetryInterval, s.tryListen)
	if s.cfg.HeartbeatTimeout > 0 {
		s.sweep = s.loop.Every(time.Duration(s.cfg.HeartbeatInterval)*time.Second, s.sweepStale)
	}
	s.mu.Unlock()

	// First attempt right away; the timer covers the retries.
	s.loop.Dispatch(s.tryListen)

	return nil
}

// Stop tears the server down: listener, every client session, timers, the
// announcement and finally the loop itself. It blocks until the loop has
// drained.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	s.listener = nil
	retry, sweep := s.retry, s.sweep
	s.retry, s.sweep = nil, nil
	ann := s.announcer
	s.announcer = nil
	sessions := s.sessions
	s.sessions = nil
	s.count = 0
	s.mu.Unlock()

	if retry != nil {
		retry.Stop()
	}
	if sweep != nil {
		sweep.Stop()
	}
	ann.Shutdown()
	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		s.detachTerm(sess)
		_ = sess.conn.Close()
	}

	s.loop.Stop()
	logging.Info("Monitor stopped", zap.Uint32("instance_id", s.instanceID))
	logging.Sync()
}

// IsRunning reports whether the server has been started and is accepting
// connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.listener != nil
}

// Addr returns the bound listener address, or nil before binding.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ClientCount returns the number of connected monitor clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// tryListen binds the listener once the activation gate is open. Runs on the
// loop; failures are logged and left to the retry timer.
func (s *Server) tryListen() {
	s.mu.Lock()
	if !s.running || s.listener != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if !s.activated() {
		logging.Debug("Activation pending, monitor listener deferred")
		return
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logging.Warn("Monitor listen failed, will retry",
			zap.String("addr", addr),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	if !s.running {
		// Stopped while binding.
		s.mu.Unlock()
		_ = ln.Close()
		return
	}
	s.listener = ln
	retry := s.retry
	s.retry = nil
	s.mu.Unlock()

	if retry != nil {
		retry.Stop()
	}

	logging.Info("Monitor listening", zap.String("addr", ln.Addr().String()))
	s.loop.WatchListener(ln, s.onAccept, s.onListenError)

	if s.cfg.Announce {
		instance := fmt.Sprintf("aimon-%08x", s.instanceID)
		ann, err := discovery.Announce(instance, s.cfg.Port, s.cfg.MaxClients)
		if err != nil {
			logging.Warn("Monitor announcement failed", zap.Error(err))
		} else {
			s.mu.Lock()
			s.announcer = ann
			s.mu.Unlock()
		}
	}
}

// onAccept admits or rejects a new client. Runs on the loop.
func (s *Server) onAccept(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	s.mu.Lock()
	if !s.running || s.count >= s.cfg.MaxClients {
		max := s.cfg.MaxClients
		s.mu.Unlock()
		logging.Warn("Rejecting monitor client, at capacity",
			zap.String("remote_addr", remote),
			zap.Int("max_clients", max),
		)
		_ = conn.Close()
		return
	}

	slot := -1
	for i, cur := range s.sessions {
		if cur == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		// Count said there was room; trust the table over the counter.
		s.mu.Unlock()
		logging.Error("Session table full despite count below limit",
			zap.String("remote_addr", remote),
		)
		_ = conn.Close()
		return
	}
	sess := newSession(conn, s.cfg.RecvBufSize, s.seqSeed)
	s.sessions[slot] = sess
	s.count++
	count := s.count
	s.mu.Unlock()

	logging.Info("Monitor client connected",
		zap.String("remote_addr", remote),
		zap.Int("clients", count),
	)

	handle := s.frameHandler(sess)
	maxPayload := uint32(s.cfg.RecvBufSize)
	s.loop.WatchConn(conn,
		s.cfg.RecvBufSize,
		func(data []byte) {
			logging.LogRawBytes("Monitor bytes from "+sess.remote, data)
			sess.feed(data, maxPayload, handle)
		},
		func(err error) { s.onConnError(sess, err) },
	)
}

// onConnError handles read errors and peer disconnects. Runs on the loop.
func (s *Server) onConnError(sess *session, err error) {
	if errors.Is(err, io.EOF) {
		s.teardown(sess, "monitor_client_disconnected")
		return
	}
	logging.Warn("Monitor client read error",
		zap.String("remote_addr", sess.remote),
		zap.Error(err),
	)
	s.teardown(sess, "monitor_client_error")
}

// onListenError recovers from a failed accept loop: every session is torn
// down, the listener is closed and the bind retry timer restarts. Runs on
// the loop.
func (s *Server) onListenError(err error) {
	logging.Error("Monitor listener failed, recovering", zap.Error(err))

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ln := s.listener
	s.listener = nil
	ann := s.announcer
	s.announcer = nil
	sessions := make([]*session, len(s.sessions))
	copy(sessions, s.sessions)
	s.mu.Unlock()

	ann.Shutdown()
	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range sessions {
		if sess != nil {
			s.teardown(sess, "monitor_client_dropped")
		}
	}

	s.mu.Lock()
	if s.running && s.retry == nil {
		s.retry = s.loop.Every(listenRetryInterval, s.tryListen)
	}
	s.mu.Unlock()
}

// teardown closes one session and frees its slot. Safe to call more than
// once for the same session; only the first call does the bookkeeping.
func (s *Server) teardown(sess *session, reason string) {
	s.mu.Lock()
	found := false
	for i, cur := range s.sessions {
		if cur == sess {
			s.sessions[i] = nil
			s.count--
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return
	}

	s.detachTerm(sess)
	_ = sess.conn.Close()
	logging.LogConnection(sess.remote, reason)
}

// sweepStale evicts sessions whose last ping is older than the heartbeat
// timeout. Runs on the loop.
func (s *Server) sweepStale() {
	timeout := time.Duration(s.cfg.HeartbeatTimeout) * time.Second
	cutoff := time.Now().Add(-timeout)

	s.mu.Lock()
	var stale []*session
	for _, sess := range s.sessions {
		if sess != nil && sess.lastPing.Before(cutoff) {
			stale = append(stale, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		logging.Warn("Evicting stale monitor client",
			zap.String("remote_addr", sess.remote),
			zap.Time("last_ping", sess.lastPing),
		)
		s.teardown(sess, "monitor_client_evicted")
	}
}

// frameHandler builds the per-session frame callback: decode the business
// packet and route it. A decode error is contained to its frame.
func (s *Server) frameHandler(sess *session) protocol.FrameHandler {
	return func(hdr protocol.Header, payload []byte) error {
		logging.LogFrame(sess.remote, uint8(hdr.Direction), hdr.Sequence, len(payload))

		pkt, err := protocol.ParsePacket(payload)
		if err != nil {
			return fmt.Errorf("bad packet from %s: %w", sess.remote, err)
		}

		switch pkt.Type {
		case protocol.PacketPing:
			return s.handlePing(sess, pkt)
		case protocol.PacketEvent:
			return s.handleEvent(sess, pkt)
		default:
			logging.Debug("Ignoring unexpected packet type",
				zap.String("remote_addr", sess.remote),
				zap.String("type", pkt.Type.String()),
			)
			return nil
		}
	}
}
