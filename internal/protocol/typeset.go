package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// TypeSet is a per-session subscription set over payload types 0..63,
// matching the 8-byte bitmap the filter event carries on the wire
// (bit N set means "relay payload type N").
type TypeSet struct {
	bits uint64
}

// maxSetType is the highest payload type representable in the bitmap.
const maxSetType = 63

// Set marks t as subscribed. Types above 63 do not fit the bitmap.
func (s *TypeSet) Set(t PacketType) error {
	if t > maxSetType {
		return fmt.Errorf("payload type %d out of bitmap range", t)
	}
	s.bits |= 1 << uint(t)
	return nil
}

// Clear removes t from the set.
func (s *TypeSet) Clear(t PacketType) error {
	if t > maxSetType {
		return fmt.Errorf("payload type %d out of bitmap range", t)
	}
	s.bits &^= 1 << uint(t)
	return nil
}

// Test reports whether t is subscribed. Types above 63 are never subscribed.
func (s *TypeSet) Test(t PacketType) bool {
	if t > maxSetType {
		return false
	}
	return s.bits&(1<<uint(t)) != 0
}

// Reset clears every subscription.
func (s *TypeSet) Reset() {
	s.bits = 0
}

// Empty reports whether no type is subscribed.
func (s *TypeSet) Empty() bool {
	return s.bits == 0
}

// ReplaceFromBitmap clears the set and subscribes the relay types whose bits
// are set in bitmap. Bits outside RelayTypes are ignored; a client cannot
// subscribe to arbitrary type values.
func (s *TypeSet) ReplaceFromBitmap(bitmap uint64) {
	s.bits = 0
	for _, t := range RelayTypes {
		if bitmap&(1<<uint(t)) != 0 {
			s.bits |= 1 << uint(t)
		}
	}
}

// Bitmap returns the set as the wire bitmap value.
func (s *TypeSet) Bitmap() uint64 {
	return s.bits
}

// EncodeBitmap serializes bitmap as the 8-byte big-endian wire form.
func EncodeBitmap(bitmap uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bitmap)
	return buf
}

// DecodeBitmap parses the 8-byte big-endian wire form. Any other length is
// an error; the filter handler rejects it without touching state.
func DecodeBitmap(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("bitmap must be 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// String lists the subscribed types for status dumps.
func (s *TypeSet) String() string {
	if s.bits == 0 {
		return "none"
	}
	var names []string
	for _, t := range RelayTypes {
		if s.Test(t) {
			names = append(names, t.String())
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%016x", s.bits)
	}
	return strings.Join(names, ",")
}
