package protocol

import (
	"encoding/binary"
	"fmt"
)

// PacketType identifies the business payload carried inside a frame.
type PacketType uint8

// Payload types understood by the monitor.
const (
	PacketPing        PacketType = 4
	PacketPong        PacketType = 5
	PacketVideoStream PacketType = 30
	PacketAudioStream PacketType = 31
	PacketImageStream PacketType = 32
	PacketFileStream  PacketType = 33
	PacketTextStream  PacketType = 34
	PacketEvent       PacketType = 35
	PacketCustomLog   PacketType = 60
	PacketError       PacketType = 0xFF
)

// String returns a human-readable packet type name
func (t PacketType) String() string {
	switch t {
	case PacketPing:
		return "ping"
	case PacketPong:
		return "pong"
	case PacketVideoStream:
		return "video"
	case PacketAudioStream:
		return "audio"
	case PacketImageStream:
		return "image"
	case PacketFileStream:
		return "file"
	case PacketTextStream:
		return "text"
	case PacketEvent:
		return "event"
	case PacketCustomLog:
		return "custom-log"
	case PacketError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// RelayTypes are the payload types a client may subscribe to for relay.
var RelayTypes = []PacketType{
	PacketVideoStream,
	PacketAudioStream,
	PacketImageStream,
	PacketFileStream,
	PacketTextStream,
	PacketEvent,
	PacketCustomLog,
}

// Packet is one decoded business payload: type byte, optional attribute
// block, raw data.
//
// Wire layout:
//
//	[0]    packet type
//	[1]    attribute flag (0 none, 1 present)
//	if present: [2:6] attribute block length uint32, then the block
//	[..+4] data length uint32
//	[..]   data
type Packet struct {
	Type  PacketType
	Attrs []Attribute
	Data  []byte
}

const (
	attrFlagNone = 0
	attrFlagSet  = 1
)

// Encode serializes the packet into frame payload bytes.
func (p *Packet) Encode() []byte {
	attrBlock := encodeAttrs(p.Attrs)

	size := 2 + 4 + len(p.Data)
	if len(p.Attrs) > 0 {
		size += 4 + len(attrBlock)
	}

	buf := make([]byte, size)
	buf[0] = byte(p.Type)
	off := 2
	if len(p.Attrs) > 0 {
		buf[1] = attrFlagSet
		binary.BigEndian.PutUint32(buf[off:], uint32(len(attrBlock)))
		off += 4
		copy(buf[off:], attrBlock)
		off += len(attrBlock)
	} else {
		buf[1] = attrFlagNone
	}
	binary.BigEndian.PutUint32(buf[off:], uint32(len(p.Data)))
	off += 4
	copy(buf[off:], p.Data)

	return buf
}

// ParsePacket decodes one frame payload into a Packet.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}

	p := &Packet{Type: PacketType(data[0])}
	off := 2

	switch data[1] {
	case attrFlagNone:
	case attrFlagSet:
		if len(data)-off < 4 {
			return nil, fmt.Errorf("truncated attribute block length")
		}
		blockLen := int(binary.BigEndian.Uint32(data[off:]))
		off += 4
		if len(data)-off < blockLen {
			return nil, fmt.Errorf("truncated attribute block: need %d bytes, have %d", blockLen, len(data)-off)
		}
		attrs, err := parseAttrs(data[off : off+blockLen])
		if err != nil {
			return nil, fmt.Errorf("bad attribute block: %w", err)
		}
		p.Attrs = attrs
		off += blockLen
	default:
		return nil, fmt.Errorf("invalid attribute flag: %d", data[1])
	}

	if len(data)-off < 4 {
		return nil, fmt.Errorf("truncated data length")
	}
	dataLen := int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	if len(data)-off < dataLen {
		return nil, fmt.Errorf("truncated data: need %d bytes, have %d", dataLen, len(data)-off)
	}
	p.Data = data[off : off+dataLen]

	return p, nil
}

// Attr returns the first attribute with the given id.
func (p *Packet) Attr(id AttrID) (Attribute, bool) {
	for _, a := range p.Attrs {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}

// EventType is the sub-type of an event packet.
type EventType uint16

const (
	// EventMonitorFilter carries an 8-byte subscription bitmap.
	EventMonitorFilter EventType = 0xF000
	// EventMonitorAlgCtrl is reserved for algorithm control; not implemented.
	EventMonitorAlgCtrl EventType = 0xF001
)

// EventHeadSize is the wire size of the event head: type (2) + length (2).
const EventHeadSize = 4

// EventHead prefixes the data section of every event packet.
type EventHead struct {
	Type   EventType
	Length uint16
}

// ParseEventHead decodes the event head at the start of data.
func ParseEventHead(data []byte) (EventHead, error) {
	if len(data) < EventHeadSize {
		return EventHead{}, fmt.Errorf("event head too short: %d bytes", len(data))
	}
	return EventHead{
		Type:   EventType(binary.BigEndian.Uint16(data[0:2])),
		Length: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// ResultCode is the wire encoding of a handler outcome, carried in every
// event acknowledgement.
type ResultCode uint32

const (
	ResultOK           ResultCode = 0
	ResultInvalidParam ResultCode = 1
	ResultNotSupported ResultCode = 2
	ResultNotFound     ResultCode = 3
	ResultTransport    ResultCode = 4
	ResultNotReady     ResultCode = 5
)

// EncodeEventResult builds the data section of an event acknowledgement:
// the echoed event head plus the big-endian result code.
func EncodeEventResult(et EventType, code ResultCode) []byte {
	buf := make([]byte, EventHeadSize+4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(et))
	binary.BigEndian.PutUint16(buf[2:4], 4) // result code length
	binary.BigEndian.PutUint32(buf[4:8], uint32(code))
	return buf
}
