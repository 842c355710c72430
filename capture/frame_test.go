package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/skein/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func TestEncoder_HeaderAndLines(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	start := time.UnixMilli(1700000000123)

	if err := enc.WriteHeader(HeaderFrame{SessionID: "sess-1", StartedAt: start.UnixMilli()}); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	lines := []string{`<pushStream id="inv"/>`, "You see a troll.", ""}
	for i, l := range lines {
		if err := enc.WriteLine(start.Add(time.Duration(i)*time.Second), l); err != nil {
			t.Fatalf("WriteLine failed: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i, want := range lines {
		got, err := dec.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine %d failed: %v", i, err)
		}
		if got.Text != want {
			t.Errorf("line %d = %q, want %q", i, got.Text, want)
		}
		if got.Seq != int64(i+1) {
			t.Errorf("line %d seq = %d, want %d", i, got.Seq, i+1)
		}
		if !got.Time().Equal(start.Add(time.Duration(i) * time.Second)) {
			t.Errorf("line %d time = %v", i, got.Time())
		}
	}
	if _, err := dec.ReadLine(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}

	h := dec.Header()
	if h == nil {
		t.Fatal("header not recorded")
	}
	if h.SessionID != "sess-1" || h.Version != types.CaptureVersion {
		t.Errorf("header = %+v", h)
	}
}

func TestDecoder_PartialFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).WriteLine(time.Now(), "hello world"); err != nil {
		t.Fatal(err)
	}
	frame := buf.Bytes()
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	_, err := NewDecoder(bytes.NewReader(truncated)).ReadLine()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
	if !IsFatalFrameError(err) {
		t.Error("partial frames should be fatal")
	}
}

func TestDecoder_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	_, err := NewDecoder(&buf).ReadFrame()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T (%v)", err, err)
	}
	if frameErr.Kind != FrameErrorTooLarge || !frameErr.IsFatal() {
		t.Errorf("unexpected error %+v", frameErr)
	}
}

func TestDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader([]byte{0x00, 0x00})).ReadFrame()
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got %v", err)
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	if _, err := NewDecoder(bytes.NewReader(nil)).ReadLine(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_DecodeErrorIsSkippable(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeFrame([]byte{0xFF, 0xFF, 0xFF}))
	if err := NewEncoder(&buf).WriteLine(time.Now(), "after"); err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder(&buf)
	_, err := dec.ReadLine()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
	if IsFatalFrameError(err) {
		t.Error("decode errors should not be fatal")
	}

	got, err := dec.ReadLine()
	if err != nil {
		t.Fatalf("reading past a decode error failed: %v", err)
	}
	if got.Text != "after" {
		t.Errorf("Text = %q, want %q", got.Text, "after")
	}
}

func TestDecodeFrame_UnknownType(t *testing.T) {
	payload, err := msgpack.Marshal(map[string]any{"type": "artifact"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeFrame(payload)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorDecode {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestFrameError_Unwrap(t *testing.T) {
	err := &FrameError{Kind: FrameErrorPartial, Msg: "read failed", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Unwrap should allow errors.Is to find underlying error")
	}
	if got := err.Error(); got != "read failed: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	for _, err := range []error{errors.New("regular"), nil, io.EOF} {
		if IsFatalFrameError(err) {
			t.Errorf("IsFatalFrameError(%v) = true", err)
		}
	}
}
