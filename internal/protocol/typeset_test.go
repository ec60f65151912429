package protocol

import "testing"

func TestTypeSetBasics(t *testing.T) {
	var s TypeSet

	if !s.Empty() {
		t.Error("fresh set should be empty")
	}
	if s.Test(PacketTextStream) {
		t.Error("fresh set should not contain text")
	}

	if err := s.Set(PacketTextStream); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !s.Test(PacketTextStream) {
		t.Error("text should be subscribed after Set")
	}
	if s.Test(PacketAudioStream) {
		t.Error("audio should not be subscribed")
	}

	if err := s.Clear(PacketTextStream); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if !s.Empty() {
		t.Error("set should be empty after Clear")
	}

	if err := s.Set(PacketType(64)); err == nil {
		t.Error("Set() should reject types above 63")
	}
	if err := s.Clear(PacketType(200)); err == nil {
		t.Error("Clear() should reject types above 63")
	}
	if s.Test(PacketType(200)) {
		t.Error("out-of-range type must never test true")
	}
}

func TestTypeSetReplaceFromBitmap(t *testing.T) {
	var s TypeSet
	s.Set(PacketVideoStream)

	// Bit 34 (text) plus a non-relay bit (ping) and a junk high bit.
	bitmap := uint64(1)<<uint(PacketTextStream) | uint64(1)<<uint(PacketPing) | uint64(1)<<63
	s.ReplaceFromBitmap(bitmap)

	if !s.Test(PacketTextStream) {
		t.Error("text should be subscribed")
	}
	if s.Test(PacketVideoStream) {
		t.Error("previous subscriptions must be replaced, not merged")
	}
	if s.Test(PacketPing) {
		t.Error("ping is not a relay type and must be ignored")
	}
	if s.Bitmap() != uint64(1)<<uint(PacketTextStream) {
		t.Errorf("bitmap = 0x%016x, want only the text bit", s.Bitmap())
	}

	s.ReplaceFromBitmap(0)
	if !s.Empty() {
		t.Error("zero bitmap should clear every subscription")
	}
}

func TestBitmapCodec(t *testing.T) {
	want := uint64(1)<<uint(PacketAudioStream) | uint64(1)<<uint(PacketCustomLog)

	got, err := DecodeBitmap(EncodeBitmap(want))
	if err != nil {
		t.Fatalf("DecodeBitmap() error = %v", err)
	}
	if got != want {
		t.Errorf("bitmap = 0x%016x, want 0x%016x", got, want)
	}

	for _, n := range []int{0, 4, 7, 9} {
		if _, err := DecodeBitmap(make([]byte, n)); err == nil {
			t.Errorf("DecodeBitmap() should reject %d bytes", n)
		}
	}
}

func TestTypeSetString(t *testing.T) {
	var s TypeSet
	if got := s.String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}

	s.Set(PacketTextStream)
	s.Set(PacketCustomLog)
	if got := s.String(); got != "text,custom-log" {
		t.Errorf("String() = %q, want text,custom-log", got)
	}
}
