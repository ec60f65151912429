package protocol

import (
	"github.com/muurk/aimon/internal/logging"
	"go.uber.org/zap"
)

// FrameHandler consumes the payload of one complete, validated frame.
// A handler error is contained to that frame: the stream keeps parsing.
type FrameHandler func(hdr Header, payload []byte) error

// syncTail is how many trailing bytes survive a failed sync search: a magic
// split across two reads is at most 3 bytes short.
const syncTail = 4 - 1

// ParseStream scans buf for complete frames and invokes handle for each.
// It returns the number of bytes consumed; the caller moves the unconsumed
// remainder to the front of its receive buffer.
//
// Recovery rules, in order:
//   - no magic anywhere: everything except a possible magic prefix at the
//     tail is dropped (the stream self-resyncs on the next magic);
//   - header present but invalid, or the declared payload length exceeds
//     maxPayload (when maxPayload > 0): skip past the 4 magic bytes and
//     rescan, so a corrupt candidate never stalls the stream;
//   - header valid but payload incomplete: consume nothing of this frame
//     and wait for more bytes.
func ParseStream(buf []byte, maxPayload uint32, handle FrameHandler) int {
	processed := 0

	for processed < len(buf) {
		off := FindSync(buf[processed:])
		if off < 0 {
			// Keep a possible split magic at the tail, drop the rest.
			keep := len(buf) - processed
			if keep > syncTail {
				keep = syncTail
			}
			processed = len(buf) - keep
			break
		}
		processed += off

		remaining := len(buf) - processed
		if remaining < HeaderSize+LengthSize {
			break // need more data
		}

		hdr, pkgLen, err := ParseHeader(buf[processed:])
		if err != nil {
			// Unreachable after FindSync, but do not stall the stream.
			processed += 4
			continue
		}

		if verr := hdr.ValidateInbound(); verr != nil {
			logging.Warn("Invalid frame header, resyncing",
				zap.String("header", hdr.String()),
				zap.Uint32("pkg_len", pkgLen),
				zap.Error(verr),
			)
			processed += 4 // skip magic, try next candidate
			continue
		}

		if maxPayload > 0 && pkgLen > maxPayload {
			logging.Warn("Frame payload exceeds buffer capacity, resyncing",
				zap.Uint32("pkg_len", pkgLen),
				zap.Uint32("max_payload", maxPayload),
			)
			processed += 4
			continue
		}

		if uint32(remaining-HeaderSize-LengthSize) < pkgLen {
			break // incomplete frame: consume nothing, wait for more bytes
		}

		payload := buf[processed+HeaderSize+LengthSize : processed+HeaderSize+LengthSize+int(pkgLen)]
		if err := handle(hdr, payload); err != nil {
			logging.Warn("Frame handler failed",
				zap.String("header", hdr.String()),
				zap.Error(err),
			)
		}

		// The frame is consumed regardless of the handler outcome.
		processed += HeaderSize + LengthSize + int(pkgLen)
	}

	return processed
}
