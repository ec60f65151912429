package monitor

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/aimon/internal/protocol"
)

// Write retry policy. A full kernel send buffer surfaces as a deadline
// timeout; the write is retried a bounded number of times and then gives up
// rather than blocking the caller indefinitely.
const (
	writeTimeout = 200 * time.Millisecond
	writeRetries = 10
)

// writer frames and sends logical packets on one client connection. It owns
// the outgoing sequence counter and per-direction byte accounting; a mutex
// serializes writes because acknowledgements (loop goroutine) and relays
// (caller goroutines) share the socket.
type writer struct {
	mu   sync.Mutex
	conn net.Conn
	seq  uint16
	sent [protocol.DirCount]uint64 // payload bytes per direction
}

func newWriter(conn net.Conn, seed uint16) *writer {
	return &writer{conn: conn, seq: seed}
}

// nextSeq advances the sequence counter. Zero is never emitted; the counter
// wraps from 0xFFFF to 1.
func (w *writer) nextSeq() uint16 {
	w.seq++
	if w.seq == 0 {
		w.seq = 1
	}
	return w.seq
}

// writePacket frames payload as one logical packet in the given direction
// and sends it: preamble, packet header with the next sequence, payload.
func (w *writer) writePacket(dir protocol.Direction, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	frame := make([]byte, 0, protocol.HeaderSize+protocol.LengthSize+len(payload))
	frame = append(frame, protocol.EncodePreamble(dir)...)
	frame = append(frame, protocol.EncodePacketHeader(w.nextSeq(), uint32(len(payload)))...)
	frame = append(frame, payload...)

	if err := w.writeAll(frame); err != nil {
		return err
	}
	if dir < protocol.DirCount {
		w.sent[dir] += uint64(len(payload))
	}
	return nil
}

// writeAll pushes data onto the socket with bounded deadline retries.
// Anything other than a timeout is fatal for the send.
func (w *writer) writeAll(data []byte) error {
	retries := 0
	for len(data) > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		n, err := w.conn.Write(data)
		data = data[n:]
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() && retries < writeRetries {
			retries++
			continue
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	_ = w.conn.SetWriteDeadline(time.Time{})
	return nil
}

// bytesSent snapshots the per-direction payload byte counters.
func (w *writer) bytesSent() [protocol.DirCount]uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sent
}
