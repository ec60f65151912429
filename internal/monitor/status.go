package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/protocol"
)

// DumpStatus writes a snapshot of the server and every session to the log.
func (s *Server) DumpStatus() {
	s.mu.Lock()
	running := s.running
	listening := s.listener != nil
	var addr string
	if listening {
		addr = s.listener.Addr().String()
	}
	count, max := s.count, s.cfg.MaxClients
	type sessionStatus struct {
		remote   string
		filter   string
		lastPing time.Time
		writer   *writer
	}
	sessions := make([]sessionStatus, 0, count)
	for _, sess := range s.sessions {
		if sess != nil {
			sessions = append(sessions, sessionStatus{
				remote:   sess.remote,
				filter:   sess.filter.String(),
				lastPing: sess.lastPing,
				writer:   sess.writer,
			})
		}
	}
	s.mu.Unlock()

	logging.Info("Monitor status",
		zap.Uint32("instance_id", s.instanceID),
		zap.Bool("running", running),
		zap.Bool("listening", listening),
		zap.String("addr", addr),
		zap.Int("clients", count),
		zap.Int("max_clients", max),
		zap.Bool("broadcast", s.cfg.EnableBroadcast),
	)

	for _, sess := range sessions {
		sent := sess.writer.bytesSent()
		logging.Info("Monitor session",
			zap.String("remote_addr", sess.remote),
			zap.String("filter", sess.filter),
			zap.Duration("since_last_ping", time.Since(sess.lastPing)),
			zap.Uint64("sent_upload", sent[protocol.DirUpload]),
			zap.Uint64("sent_download", sent[protocol.DirDownload]),
			zap.Uint64("sent_ack", sent[protocol.DirAck]),
		)
	}
}
