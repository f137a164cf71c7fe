package protocol

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"

	"hexarena/logic"
)

const (
	flagRaw byte = 0
	flagLZ4 byte = 1
)

// MaxDecoded bounds the inflated size of one lz4 frame.
const MaxDecoded = 4 << 20

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Pack prefixes data with a flag byte, compressing it with lz4 when it exceeds threshold.
// A threshold of zero or less disables compression.
func Pack(data []byte, threshold int) ([]byte, error) {
	if threshold <= 0 || len(data) <= threshold {
		out := make([]byte, 0, len(data)+1)
		out = append(out, flagRaw)
		return append(out, data...), nil
	}
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	buf.WriteByte(flagLZ4)
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Unpack reverses Pack.
func Unpack(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	switch frame[0] {
	case flagRaw:
		return frame[1:], nil
	case flagLZ4:
		buf := bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer bufferPool.Put(buf)
		zr := io.LimitReader(lz4.NewReader(bytes.NewReader(frame[1:])), MaxDecoded+1)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, fmt.Errorf("lz4 read: %w", err)
		}
		if buf.Len() > MaxDecoded {
			return nil, fmt.Errorf("%w: over %d bytes", ErrFrameTooLarge, MaxDecoded)
		}
		out := make([]byte, buf.Len())
		copy(out, buf.Bytes())
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrBadFlag, frame[0])
}

// Wire is a codec plus framing, built from the transport config.
type Wire struct {
	Codec     Codec
	Threshold int
}

func NewWire(cfg logic.TransportConfig) (Wire, error) {
	c, err := CodecByName(cfg.Codec)
	if err != nil {
		return Wire{}, err
	}
	return Wire{Codec: c, Threshold: cfg.CompressThreshold}, nil
}

// Marshal encodes one message into a websocket frame.
func (w Wire) Marshal(code int, payload any) ([]byte, error) {
	data, err := w.Codec.Encode(code, payload)
	if err != nil {
		return nil, fmt.Errorf("encode %d: %w", code, err)
	}
	return Pack(data, w.Threshold)
}

// MarshalEvent encodes an outbound simulation event.
func (w Wire) MarshalEvent(ev logic.Event) ([]byte, error) {
	return w.Marshal(int(ev.Type), ev.Payload)
}

func (w Wire) Unmarshal(frame []byte) (Message, error) {
	data, err := Unpack(frame)
	if err != nil {
		return Message{}, err
	}
	if len(data) == 0 {
		return Message{}, ErrEmptyFrame
	}
	return w.Codec.Decode(data)
}
