package monitor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/protocol"
)

// Pipeline channel ids carried in relayed packets, identifying which leg of
// the AI pipeline produced the payload.
const (
	ChannelText uint32 = 5
	ChannelLog  uint32 = 0x8001
	ChannelMic  uint32 = 0x8003
	ChannelRef  uint32 = 0x8005
	ChannelAec  uint32 = 0x8007
)

// Relay fans one pipeline message out to every connected client subscribed
// to typ. The channel id is attached as an attribute ahead of attrs. total
// is the producer's declared full message size; when it is non-zero and
// differs from len(data) the message is a fragment, which the monitor does
// not reassemble or relay.
//
// Per-recipient send failures are logged and skipped; one slow or dead
// client never blocks the others. Relaying is a no-op while broadcast is
// disabled in the configuration.
func (s *Server) Relay(dir protocol.Direction, typ protocol.PacketType, channel uint32, attrs []protocol.Attribute, data []byte, total int) error {
	if total > 0 && total != len(data) {
		return fmt.Errorf("%w: fragmented message (total=%d, len=%d)", ErrNotSupported, total, len(data))
	}
	if !s.cfg.EnableBroadcast {
		return nil
	}

	targets, err := s.subscribers(typ)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	payload := encodeRelay(typ, channel, attrs, data)
	for _, sess := range targets {
		if werr := sess.writer.writePacket(dir, payload); werr != nil {
			logging.Warn("Relay to monitor client failed",
				zap.String("remote_addr", sess.remote),
				zap.String("type", typ.String()),
				zap.Error(werr),
			)
		}
	}
	return nil
}

// Broadcast relays an unfragmented message. Everything the device itself
// hands to clients travels in the ack direction; upload and download are
// reserved for mirrored cloud traffic relayed through Relay directly.
func (s *Server) Broadcast(typ protocol.PacketType, channel uint32, attrs []protocol.Attribute, data []byte) error {
	return s.Relay(protocol.DirAck, typ, channel, attrs, data, 0)
}

// BroadcastText relays one text result to subscribed clients.
func (s *Server) BroadcastText(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("%w: empty text", ErrInvalidParam)
	}
	return s.Relay(protocol.DirAck, protocol.PacketTextStream, ChannelText, nil, []byte(text), 0)
}

// BroadcastAudio relays one audio payload on the given pipeline channel.
// attrs typically carry the codec, sample rate, channel count and bit depth.
func (s *Server) BroadcastAudio(channel uint32, attrs []protocol.Attribute, data []byte) error {
	return s.Relay(protocol.DirAck, protocol.PacketAudioStream, channel, attrs, data, 0)
}

// BroadcastMicAudio relays raw microphone capture.
func (s *Server) BroadcastMicAudio(attrs []protocol.Attribute, data []byte) error {
	return s.BroadcastAudio(ChannelMic, attrs, data)
}

// BroadcastRefAudio relays the echo-cancellation reference signal.
func (s *Server) BroadcastRefAudio(attrs []protocol.Attribute, data []byte) error {
	return s.BroadcastAudio(ChannelRef, attrs, data)
}

// BroadcastAecAudio relays the post-AEC processed signal.
func (s *Server) BroadcastAecAudio(attrs []protocol.Attribute, data []byte) error {
	return s.BroadcastAudio(ChannelAec, attrs, data)
}

// BroadcastLog sends one log line to every client subscribed to the
// custom-log stream. This path must never log, or a logged send failure
// would feed back into itself through the output-term registry.
func (s *Server) BroadcastLog(line string) error {
	if len(line) == 0 {
		return fmt.Errorf("%w: empty log line", ErrInvalidParam)
	}
	if !s.cfg.EnableBroadcast {
		return nil
	}
	targets, err := s.subscribers(protocol.PacketCustomLog)
	if err != nil {
		return err
	}
	for _, sess := range targets {
		relayLogLine(sess.writer, line)
	}
	return nil
}

// subscribers snapshots the sessions subscribed to typ.
func (s *Server) subscribers(typ protocol.PacketType) ([]*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.listener == nil {
		return nil, ErrNotReady
	}
	var targets []*session
	for _, sess := range s.sessions {
		if sess != nil && sess.filter.Test(typ) {
			targets = append(targets, sess)
		}
	}
	return targets, nil
}

// encodeRelay builds the relayed packet payload: channel id attribute first,
// then the producer's attributes, then the data.
func encodeRelay(typ protocol.PacketType, channel uint32, attrs []protocol.Attribute, data []byte) []byte {
	all := make([]protocol.Attribute, 0, len(attrs)+1)
	all = append(all, protocol.U32Attr(protocol.AttrChannelID, channel))
	all = append(all, attrs...)
	pkt := &protocol.Packet{Type: typ, Attrs: all, Data: data}
	return pkt.Encode()
}

// relayLogLine writes one custom-log packet without logging anything itself;
// it runs inline on the logging call path via the output-term registry.
func relayLogLine(w *writer, line string) {
	payload := encodeRelay(protocol.PacketCustomLog, ChannelLog, nil, []byte(line))
	_ = w.writePacket(protocol.DirAck, payload)
}
