package nats

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeFramesRoundTrip(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"type":"paxos_prepare"}`),
		[]byte(`[1,"node-a"]`),
	}

	encoded := encodeFrames(frames)
	decoded, err := decodeFrames(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(frames) {
		t.Fatalf("expected %d frames, got %d", len(frames), len(decoded))
	}
	for i := range frames {
		if !bytes.Equal(decoded[i], frames[i]) {
			t.Fatalf("frame %d mismatch: got %q want %q", i, decoded[i], frames[i])
		}
	}
}

func TestEncodeDecodeEmptyFrame(t *testing.T) {
	frames := [][]byte{{}, []byte("x")}
	decoded, err := decodeFrames(encodeFrames(frames))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded[0]) != 0 {
		t.Fatalf("expected empty first frame, got %q", decoded[0])
	}
	if !bytes.Equal(decoded[1], []byte("x")) {
		t.Fatalf("unexpected second frame: %q", decoded[1])
	}
}

func TestDecodeTruncatedPayloadErrors(t *testing.T) {
	if _, err := decodeFrames([]byte{0, 0, 0, 5, 'a', 'b'}); err == nil {
		t.Fatalf("expected an error decoding a truncated payload")
	}
}
