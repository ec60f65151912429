package monitor

import (
	"net"
	"time"

	"github.com/muurk/aimon/internal/protocol"
)

// session is one connected monitor client. The receive buffer is touched
// only on the loop goroutine; filter, lastPing and termTag are guarded by
// the server mutex because the relay and status paths read them; the writer
// carries its own lock.
type session struct {
	conn   net.Conn
	remote string
	writer *writer

	// rbuf accumulates stream bytes until complete frames can be cut.
	rbuf []byte

	// filter holds the payload types this client subscribed to.
	filter protocol.TypeSet

	// lastPing is the arrival time of the most recent ping, used by the
	// stale-session sweep.
	lastPing time.Time

	// termTag is the output-term registration key while the client is
	// subscribed to the custom-log stream; empty otherwise.
	termTag string
}

func newSession(conn net.Conn, recvBufSize int, seqSeed uint16) *session {
	return &session{
		conn:     conn,
		remote:   conn.RemoteAddr().String(),
		writer:   newWriter(conn, seqSeed),
		rbuf:     make([]byte, 0, recvBufSize),
		lastPing: time.Now(),
	}
}

// feed appends incoming bytes and parses out every complete frame, handing
// each to handle. Unconsumed bytes stay at the front of the buffer for the
// next read.
func (s *session) feed(data []byte, maxPayload uint32, handle protocol.FrameHandler) {
	s.rbuf = append(s.rbuf, data...)
	consumed := protocol.ParseStream(s.rbuf, maxPayload, handle)
	if consumed > 0 {
		n := copy(s.rbuf, s.rbuf[consumed:])
		s.rbuf = s.rbuf[:n]
	}
}
