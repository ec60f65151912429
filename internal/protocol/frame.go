package protocol

import (
	"encoding/binary"
	"fmt"
)

// Monitor frame constants
const (
	// Magic is the 4-byte frame synchronization constant ("TYAI"),
	// written big-endian on the wire.
	Magic uint32 = 0x54594149

	// Version is the only supported protocol header version.
	Version = 1

	// HeaderSize is the size of the monitor frame header on the wire:
	// magic (4) + control byte (1) + packet header (4).
	HeaderSize = 9

	// LengthSize is the size of the payload length field that follows
	// the header.
	LengthSize = 4
)

// Direction tags the originator of a frame within the shared wire format.
type Direction uint8

const (
	// DirUpload is device-to-cloud traffic mirrored to clients.
	DirUpload Direction = 0
	// DirDownload is cloud-to-device traffic mirrored to clients.
	DirDownload Direction = 1
	// DirAck is device-to-client traffic; the only direction a client may
	// use for its own frames.
	DirAck Direction = 2

	// DirCount is the number of wire directions.
	DirCount = 3
)

// String returns a human-readable direction name
func (d Direction) String() string {
	switch d {
	case DirUpload:
		return "upload"
	case DirDownload:
		return "download"
	case DirAck:
		return "ack"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// SecurityLevel of the packet header. Only SL0 (no encryption) is supported
// by the monitor.
type SecurityLevel uint8

// SL0 is the plaintext security level.
const SL0 SecurityLevel = 0

// FragFlag of the packet header. The monitor rejects fragmented frames.
type FragFlag uint8

// FragNone marks an unfragmented packet.
const FragNone FragFlag = 0

// Header is the parsed monitor frame header.
//
// Wire layout (multi-byte fields big-endian):
//
//	[0:4]  magic 0x54594149
//	[4]    control: direction in the low 2 bits, 6 reserved bits high
//	[5]    version (high 4 bits) | iv flag (1 bit) | security level (3 bits)
//	[6]    frag flag (high 2 bits) | 6 reserved bits
//	[7:9]  sequence
//	[9:13] payload length (not part of Header, returned separately)
type Header struct {
	Direction     Direction
	Version       uint8
	IVFlag        bool
	SecurityLevel SecurityLevel
	FragFlag      FragFlag
	Sequence      uint16
}

// FindSync scans data byte-by-byte for the frame magic and returns the
// offset of its first occurrence, or -1 when no complete magic is present.
// Bytes before the match carry no frame and are discardable.
func FindSync(data []byte) int {
	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], Magic)
	for off := 0; off+4 <= len(data); off++ {
		if data[off] == magic[0] && data[off+1] == magic[1] &&
			data[off+2] == magic[2] && data[off+3] == magic[3] {
			return off
		}
	}
	return -1
}

// ParseHeader interprets the frame header and payload length at the start of
// data. data must begin with the magic (use FindSync first) and hold at
// least HeaderSize+LengthSize bytes.
func ParseHeader(data []byte) (Header, uint32, error) {
	if len(data) < HeaderSize+LengthSize {
		return Header{}, 0, fmt.Errorf("header too short: %d bytes (need %d)", len(data), HeaderSize+LengthSize)
	}
	if binary.BigEndian.Uint32(data[0:4]) != Magic {
		return Header{}, 0, fmt.Errorf("bad magic: 0x%08x", binary.BigEndian.Uint32(data[0:4]))
	}

	hdr := Header{
		Direction:     Direction(data[4] & 0x03),
		Version:       data[5] >> 4,
		IVFlag:        data[5]&0x08 != 0,
		SecurityLevel: SecurityLevel(data[5] & 0x07),
		FragFlag:      FragFlag(data[6] >> 6),
		Sequence:      binary.BigEndian.Uint16(data[7:9]),
	}
	pkgLen := binary.BigEndian.Uint32(data[9:13])

	return hdr, pkgLen, nil
}

// ValidateInbound checks the invariants required of client-originated
// frames: ack direction, version 1, no IV, plaintext security level, no
// fragmentation.
func (h Header) ValidateInbound() error {
	if h.Direction != DirAck {
		return fmt.Errorf("invalid direction: %s (client frames must be %s)", h.Direction, DirAck)
	}
	if h.Version != Version {
		return fmt.Errorf("invalid version: %d (expected %d)", h.Version, Version)
	}
	if h.IVFlag {
		return fmt.Errorf("iv flag set")
	}
	if h.SecurityLevel != SL0 {
		return fmt.Errorf("invalid security level: %d", h.SecurityLevel)
	}
	if h.FragFlag != FragNone {
		return fmt.Errorf("fragmented frame not supported")
	}
	return nil
}

// EncodeFrame builds one complete wire frame around payload.
func EncodeFrame(dir Direction, sequence uint16, payload []byte) []byte {
	frame := make([]byte, HeaderSize+LengthSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], Magic)
	frame[4] = byte(dir) & 0x03
	frame[5] = Version << 4
	frame[6] = 0
	binary.BigEndian.PutUint16(frame[7:9], sequence)
	binary.BigEndian.PutUint32(frame[9:13], uint32(len(payload)))
	copy(frame[HeaderSize+LengthSize:], payload)
	return frame
}

// EncodePreamble returns the 5-byte frame preamble (magic + control byte)
// written once per logical packet before the packet header.
func EncodePreamble(dir Direction) []byte {
	pre := make([]byte, 5)
	binary.BigEndian.PutUint32(pre[0:4], Magic)
	pre[4] = byte(dir) & 0x03
	return pre
}

// EncodePacketHeader returns the 4-byte packet header plus the 4-byte
// payload length field that follow the preamble on the wire.
func EncodePacketHeader(sequence uint16, payloadLen uint32) []byte {
	buf := make([]byte, 8)
	buf[0] = Version << 4
	buf[1] = 0
	binary.BigEndian.PutUint16(buf[2:4], sequence)
	binary.BigEndian.PutUint32(buf[4:8], payloadLen)
	return buf
}

// String returns a debug representation of the header
func (h Header) String() string {
	return fmt.Sprintf("Header{dir=%s, ver=%d, iv=%v, sl=%d, frag=%d, seq=%d}",
		h.Direction, h.Version, h.IVFlag, h.SecurityLevel, h.FragFlag, h.Sequence)
}
