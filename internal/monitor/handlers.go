package monitor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/protocol"
)

// handlePing answers a client heartbeat: the client timestamp is echoed back
// untouched and the server timestamp is attached, so the client can measure
// round-trip time and clock offset. A ping without a client timestamp is
// malformed and gets no pong.
func (s *Server) handlePing(sess *session, pkt *protocol.Packet) error {
	ts, ok := pkt.Attr(protocol.AttrClientTS)
	if !ok {
		return fmt.Errorf("%w: ping without client timestamp from %s", ErrInvalidParam, sess.remote)
	}

	s.mu.Lock()
	sess.lastPing = time.Now()
	s.mu.Unlock()

	attrs := []protocol.Attribute{
		ts,
		protocol.U64Attr(protocol.AttrServerTS, uint64(time.Now().UnixMilli())),
	}

	pong := &protocol.Packet{Type: protocol.PacketPong, Attrs: attrs}
	return sess.writer.writePacket(protocol.DirAck, pong.Encode())
}

// handleEvent routes an event packet by its sub-type and acknowledges it.
// Every event gets an acknowledgement carrying the outcome; only an event
// too short to name its sub-type goes unanswered.
func (s *Server) handleEvent(sess *session, pkt *protocol.Packet) error {
	head, err := protocol.ParseEventHead(pkt.Data)
	if err != nil {
		return fmt.Errorf("bad event from %s: %w", sess.remote, err)
	}

	body := pkt.Data[protocol.EventHeadSize:]
	if int(head.Length) > len(body) {
		return s.ackEvent(sess, pkt, head.Type, fmt.Errorf("%w: event body truncated", ErrInvalidParam))
	}
	body = body[:head.Length]

	var herr error
	switch head.Type {
	case protocol.EventMonitorFilter:
		herr = s.applyFilter(sess, body)
	case protocol.EventMonitorAlgCtrl:
		herr = fmt.Errorf("%w: algorithm control", ErrNotSupported)
	default:
		herr = fmt.Errorf("%w: event 0x%04x", ErrNotSupported, uint16(head.Type))
	}

	if herr != nil {
		logging.Warn("Monitor event rejected",
			zap.String("remote_addr", sess.remote),
			zap.Uint16("event", uint16(head.Type)),
			zap.Error(herr),
		)
	}
	return s.ackEvent(sess, pkt, head.Type, herr)
}

// ackEvent sends the event acknowledgement: the request's session-id,
// event-id and user-data attributes echoed back, plus the event head and the
// result code in the data section.
func (s *Server) ackEvent(sess *session, req *protocol.Packet, et protocol.EventType, herr error) error {
	var attrs []protocol.Attribute
	for _, id := range []protocol.AttrID{protocol.AttrSessionID, protocol.AttrEventID, protocol.AttrUserData} {
		if a, ok := req.Attr(id); ok {
			attrs = append(attrs, a)
		}
	}

	ack := &protocol.Packet{
		Type:  protocol.PacketEvent,
		Attrs: attrs,
		Data:  protocol.EncodeEventResult(et, resultCode(herr)),
	}
	return sess.writer.writePacket(protocol.DirAck, ack.Encode())
}

// applyFilter replaces the session's subscription set from the 8-byte bitmap
// in the event body. A malformed bitmap leaves the previous subscriptions
// untouched. Subscribing to the custom-log stream attaches the session to
// the logging output-term registry; unsubscribing detaches it.
func (s *Server) applyFilter(sess *session, body []byte) error {
	bitmap, err := protocol.DecodeBitmap(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}

	s.mu.Lock()
	sess.filter.ReplaceFromBitmap(bitmap)
	filter := sess.filter.String()
	wantLog := sess.filter.Test(protocol.PacketCustomLog)
	s.mu.Unlock()

	logging.Info("Monitor client filter updated",
		zap.String("remote_addr", sess.remote),
		zap.String("filter", filter),
	)

	if wantLog {
		s.attachTerm(sess)
	} else {
		s.detachTerm(sess)
	}
	return nil
}

// attachTerm registers the session as a log output term so it receives
// formatted log lines as custom-log packets. The term function must not log;
// it writes straight to the session socket.
func (s *Server) attachTerm(sess *session) {
	s.mu.Lock()
	if sess.termTag != "" {
		s.mu.Unlock()
		return
	}
	sess.termTag = "monitor:" + sess.remote
	tag := sess.termTag
	s.mu.Unlock()

	w := sess.writer
	logging.AddOutputTerm(tag, func(line string) {
		relayLogLine(w, line)
	})
}

// detachTerm removes the session's log output term, if attached.
func (s *Server) detachTerm(sess *session) {
	s.mu.Lock()
	tag := sess.termTag
	sess.termTag = ""
	s.mu.Unlock()

	if tag != "" {
		logging.RemoveOutputTerm(tag)
	}
}
