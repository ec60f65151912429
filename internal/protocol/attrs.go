package protocol

import (
	"encoding/binary"
	"fmt"
)

// AttrID identifies one attribute within a packet's attribute block.
type AttrID uint16

// Attribute ids used by the monitor protocol.
const (
	AttrClientTS   AttrID = 1  // client timestamp, u64 milliseconds
	AttrServerTS   AttrID = 2  // server timestamp, u64 milliseconds
	AttrSessionID  AttrID = 3  // event session id, string
	AttrEventID    AttrID = 4  // event id, string
	AttrUserData   AttrID = 5  // event user data, bytes
	AttrStreamFlag AttrID = 6  // stream start/ing/end flags, u8
	AttrCodecType  AttrID = 7  // audio codec, u8
	AttrSampleRate AttrID = 8  // audio sample rate, u32
	AttrChannels   AttrID = 9  // audio channel count, u8
	AttrBitDepth   AttrID = 10 // audio bit depth, u8
	AttrChannelID  AttrID = 11 // originating pipeline channel, u32
)

// AttrType is the encoded value type of an attribute.
type AttrType uint8

const (
	AttrTypeU8 AttrType = iota + 1
	AttrTypeU16
	AttrTypeU32
	AttrTypeU64
	AttrTypeString
	AttrTypeBytes
)

// Attribute is one id/type/value triple.
//
// Wire layout: id uint16 | value type uint8 | value length uint16 | value.
type Attribute struct {
	ID    AttrID
	Type  AttrType
	Value []byte
}

// attrHeadSize is id (2) + type (1) + length (2).
const attrHeadSize = 5

// U8Attr builds a u8 attribute
func U8Attr(id AttrID, v uint8) Attribute {
	return Attribute{ID: id, Type: AttrTypeU8, Value: []byte{v}}
}

// U32Attr builds a big-endian u32 attribute
func U32Attr(id AttrID, v uint32) Attribute {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, v)
	return Attribute{ID: id, Type: AttrTypeU32, Value: value}
}

// U64Attr builds a big-endian u64 attribute
func U64Attr(id AttrID, v uint64) Attribute {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, v)
	return Attribute{ID: id, Type: AttrTypeU64, Value: value}
}

// StringAttr builds a string attribute
func StringAttr(id AttrID, s string) Attribute {
	return Attribute{ID: id, Type: AttrTypeString, Value: []byte(s)}
}

// BytesAttr builds a raw bytes attribute
func BytesAttr(id AttrID, b []byte) Attribute {
	return Attribute{ID: id, Type: AttrTypeBytes, Value: b}
}

// U8 decodes the attribute value as a u8
func (a Attribute) U8() (uint8, error) {
	if a.Type != AttrTypeU8 || len(a.Value) != 1 {
		return 0, fmt.Errorf("attr %d: not a u8 (type=%d, len=%d)", a.ID, a.Type, len(a.Value))
	}
	return a.Value[0], nil
}

// U32 decodes the attribute value as a big-endian u32
func (a Attribute) U32() (uint32, error) {
	if a.Type != AttrTypeU32 || len(a.Value) != 4 {
		return 0, fmt.Errorf("attr %d: not a u32 (type=%d, len=%d)", a.ID, a.Type, len(a.Value))
	}
	return binary.BigEndian.Uint32(a.Value), nil
}

// U64 decodes the attribute value as a big-endian u64
func (a Attribute) U64() (uint64, error) {
	if a.Type != AttrTypeU64 || len(a.Value) != 8 {
		return 0, fmt.Errorf("attr %d: not a u64 (type=%d, len=%d)", a.ID, a.Type, len(a.Value))
	}
	return binary.BigEndian.Uint64(a.Value), nil
}

// Str decodes the attribute value as a string
func (a Attribute) Str() (string, error) {
	if a.Type != AttrTypeString {
		return "", fmt.Errorf("attr %d: not a string (type=%d)", a.ID, a.Type)
	}
	return string(a.Value), nil
}

// encodeAttrs serializes attrs into one attribute block (without the block
// length prefix).
func encodeAttrs(attrs []Attribute) []byte {
	size := 0
	for _, a := range attrs {
		size += attrHeadSize + len(a.Value)
	}

	buf := make([]byte, size)
	off := 0
	for _, a := range attrs {
		binary.BigEndian.PutUint16(buf[off:], uint16(a.ID))
		buf[off+2] = byte(a.Type)
		binary.BigEndian.PutUint16(buf[off+3:], uint16(len(a.Value)))
		copy(buf[off+attrHeadSize:], a.Value)
		off += attrHeadSize + len(a.Value)
	}
	return buf
}

// parseAttrs decodes one attribute block.
func parseAttrs(data []byte) ([]Attribute, error) {
	var attrs []Attribute
	off := 0
	for off < len(data) {
		if len(data)-off < attrHeadSize {
			return nil, fmt.Errorf("truncated attribute head at offset %d", off)
		}
		id := AttrID(binary.BigEndian.Uint16(data[off:]))
		typ := AttrType(data[off+2])
		vlen := int(binary.BigEndian.Uint16(data[off+3:]))
		off += attrHeadSize

		if len(data)-off < vlen {
			return nil, fmt.Errorf("truncated attribute %d: need %d value bytes, have %d", id, vlen, len(data)-off)
		}
		attrs = append(attrs, Attribute{ID: id, Type: typ, Value: data[off : off+vlen]})
		off += vlen
	}
	return attrs, nil
}
