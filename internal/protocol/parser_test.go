package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// collect gathers every payload ParseStream hands out.
func collect(t *testing.T, buf []byte, maxPayload uint32) (consumed int, payloads [][]byte) {
	t.Helper()
	consumed = ParseStream(buf, maxPayload, func(hdr Header, payload []byte) error {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		payloads = append(payloads, cp)
		return nil
	})
	return consumed, payloads
}

func TestParseStreamSingleFrame(t *testing.T) {
	payload := []byte("ping-payload")
	frame := EncodeFrame(DirAck, 1, payload)

	consumed, payloads := collect(t, frame, 0)
	if consumed != len(frame) {
		t.Errorf("consumed = %d, want %d", consumed, len(frame))
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], payload) {
		t.Errorf("payloads = %v, want one %q", payloads, payload)
	}
}

func TestParseStreamResyncAfterGarbage(t *testing.T) {
	// Garbage before the magic must be discarded, never misread as a frame.
	payload := []byte("after-garbage")
	garbage := []byte{0xde, 0xad, 0x54, 0x59, 0x00, 0xbe, 0xef} // includes a magic prefix
	buf := append(append([]byte{}, garbage...), EncodeFrame(DirAck, 2, payload)...)

	consumed, payloads := collect(t, buf, 0)
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], payload) {
		t.Errorf("payloads = %v, want one %q", payloads, payload)
	}
}

func TestParseStreamTruncatedFrameConsumesNothing(t *testing.T) {
	payload := []byte("0123456789abcdef")
	frame := EncodeFrame(DirAck, 3, payload)

	for cut := 1; cut < len(frame); cut++ {
		consumed, payloads := collect(t, frame[:cut], 0)
		if len(payloads) != 0 {
			t.Fatalf("cut=%d: got %d payloads from a truncated frame", cut, len(payloads))
		}
		// Nothing of the pending frame may be consumed, so the next read
		// can complete it byte-for-byte. (Less than 4 buffered bytes may
		// be held back as a potential split magic.)
		if cut >= 4 && consumed != 0 {
			t.Fatalf("cut=%d: consumed = %d, want 0", cut, consumed)
		}
	}

	// Once the remainder arrives the frame parses byte-for-byte.
	consumed, payloads := collect(t, frame, 0)
	if consumed != len(frame) || len(payloads) != 1 || !bytes.Equal(payloads[0], payload) {
		t.Errorf("reassembled frame did not parse: consumed=%d payloads=%v", consumed, payloads)
	}
}

func TestParseStreamInvalidHeaderSkipsMagicOnly(t *testing.T) {
	// A frame with a bad direction is skipped past its magic; a valid frame
	// following it must still parse.
	bad := EncodeFrame(DirUpload, 4, []byte("bad"))
	good := EncodeFrame(DirAck, 5, []byte("good"))
	buf := append(append([]byte{}, bad...), good...)

	consumed, payloads := collect(t, buf, 0)
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], []byte("good")) {
		t.Errorf("payloads = %v, want one %q", payloads, "good")
	}
}

func TestParseStreamOversizedPayloadResyncs(t *testing.T) {
	huge := EncodeFrame(DirAck, 6, make([]byte, 512))
	good := EncodeFrame(DirAck, 7, []byte("ok"))
	buf := append(append([]byte{}, huge...), good...)

	// With maxPayload 64 the 512-byte frame can never complete; it must be
	// skipped instead of stalling the stream.
	_, payloads := collect(t, buf, 64)
	if len(payloads) != 1 || !bytes.Equal(payloads[0], []byte("ok")) {
		t.Errorf("payloads = %v, want one %q", payloads, "ok")
	}
}

func TestParseStreamMultipleFrames(t *testing.T) {
	var buf []byte
	want := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for i, p := range want {
		buf = append(buf, EncodeFrame(DirAck, uint16(i+1), p)...)
	}

	consumed, payloads := collect(t, buf, 0)
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(payloads) != len(want) {
		t.Fatalf("got %d payloads, want %d", len(payloads), len(want))
	}
	for i := range want {
		if !bytes.Equal(payloads[i], want[i]) {
			t.Errorf("payload[%d] = %q, want %q", i, payloads[i], want[i])
		}
	}
}

func TestParseStreamHandlerErrorStillConsumesFrame(t *testing.T) {
	frame := EncodeFrame(DirAck, 8, []byte("poison"))
	buf := append(append([]byte{}, frame...), EncodeFrame(DirAck, 9, []byte("next"))...)

	calls := 0
	consumed := ParseStream(buf, 0, func(hdr Header, payload []byte) error {
		calls++
		return errors.New("handler failure")
	})

	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestParseStreamKeepsPossibleMagicPrefix(t *testing.T) {
	// A buffer ending in a magic prefix keeps those bytes for the next read.
	buf := []byte{0x00, 0x01, 'T', 'Y', 'A'}
	consumed, payloads := collect(t, buf, 0)
	if len(payloads) != 0 {
		t.Fatalf("got payloads from garbage: %v", payloads)
	}
	if kept := len(buf) - consumed; kept != 3 {
		t.Errorf("kept %d tail bytes, want 3", kept)
	}
}
