// Package capture records raw server lines as length-prefixed msgpack
// frames so a session can be replayed byte for byte.
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack
// map with a "type" discriminant. A capture starts with one header frame
// and continues with line frames.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/skein/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (1 MiB), including length prefix.
	MaxFrameSize = 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	HeaderType = "header"
	LineType   = "line"
)

// HeaderFrame opens a capture.
type HeaderFrame struct {
	Type      string `msgpack:"type"`
	Version   string `msgpack:"version"`
	SessionID string `msgpack:"session_id"`
	// StartedAt is unix milliseconds.
	StartedAt int64  `msgpack:"started_at"`
	Character string `msgpack:"character,omitempty"`
}

// LineFrame is one raw line as received.
type LineFrame struct {
	Type string `msgpack:"type"`
	Seq  int64  `msgpack:"seq"`
	// Ts is unix milliseconds.
	Ts   int64  `msgpack:"ts"`
	Text string `msgpack:"text"`
}

// Time returns the receive time of the line.
func (f *LineFrame) Time() time.Time {
	return time.UnixMilli(f.Ts)
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream cannot continue past this error.
// Partial and oversized frames are fatal; a payload that fails to decode
// can be skipped.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// Encoder writes frames to a stream.
type Encoder struct {
	w   io.Writer
	seq int64
}

// NewEncoder creates an encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteHeader writes the header frame. The version defaults to
// types.CaptureVersion.
func (e *Encoder) WriteHeader(h HeaderFrame) error {
	h.Type = HeaderType
	if h.Version == "" {
		h.Version = types.CaptureVersion
	}
	return e.writeFrame(&h)
}

// WriteLine writes one line frame with the next sequence number.
func (e *Encoder) WriteLine(ts time.Time, text string) error {
	e.seq++
	return e.writeFrame(&LineFrame{Type: LineType, Seq: e.seq, Ts: ts.UnixMilli(), Text: text})
}

func (e *Encoder) writeFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decoder reads frames from a stream.
type Decoder struct {
	reader io.Reader
	header *HeaderFrame
}

// NewDecoder creates a decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: r}
}

// Header returns the header frame once it has been read, or nil.
func (d *Decoder) Header() *HeaderFrame {
	return d.header
}

// ReadFrame reads a single frame and returns its raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *Decoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into a *HeaderFrame or *LineFrame.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}

	switch probe.Type {
	case HeaderType:
		var h HeaderFrame
		if err := msgpack.Unmarshal(payload, &h); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode header", Err: err}
		}
		return &h, nil
	case LineType:
		var l LineFrame
		if err := msgpack.Unmarshal(payload, &l); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode line", Err: err}
		}
		return &l, nil
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
	}
}

// ReadLine returns the next line frame. A header frame is remembered and
// skipped. A frame that fails to decode is returned as a non-fatal
// *FrameError; the caller may continue reading.
func (d *Decoder) ReadLine() (*LineFrame, error) {
	for {
		payload, err := d.ReadFrame()
		if err != nil {
			return nil, err
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			return nil, err
		}
		switch f := frame.(type) {
		case *HeaderFrame:
			d.header = f
		case *LineFrame:
			return f, nil
		}
	}
}
