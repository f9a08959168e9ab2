package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ErrShortRead is returned when a peer closes or errors before a complete
// frame (header or payload) could be read.
var ErrShortRead = errors.New("protocol: short read")

// Frame is one fully-received header+payload pair.
type Frame struct {
	Header  Header
	Payload []byte
}

// Bytes returns the wire representation of the frame: header followed by
// payload. This is exactly what gets appended to the WAL and exactly what
// ReadFrame would reproduce from the wire.
func (f Frame) Bytes() ([]byte, error) {
	hdr, err := f.Header.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderLen+len(f.Payload))
	out = append(out, hdr[:]...)
	out = append(out, f.Payload...)
	return out, nil
}

// ReadFrame reads exactly one complete frame from r.
//
// scratch is a caller-owned, reusable payload buffer (the "shared request
// buffer" of §3/§5): if its capacity is sufficient, the payload is read
// into scratch[:len] and no allocation occurs; otherwise scratch is grown.
// The returned Frame.Payload aliases *scratch and is only valid until the
// next call to ReadFrame with the same scratch pointer — callers that need
// the bytes to outlive that must copy them (WAL append and CBOR decode both
// copy internally, so ordinary dispatch never needs to).
func ReadFrame(r io.Reader, scratch *[]byte) (Frame, error) {
	var hb [HeaderLen]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: reading frame header: %v", ErrShortRead, err)
	}

	hdr := DecodeHeader(hb)
	if hdr.Len > MaxPayloadLen {
		return Frame{}, fmt.Errorf("protocol: frame length %d exceeds maximum %d", hdr.Len, MaxPayloadLen)
	}

	if cap(*scratch) < int(hdr.Len) {
		*scratch = make([]byte, hdr.Len)
	}
	payload := (*scratch)[:hdr.Len]

	if hdr.Len > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("%w: reading frame payload: %v", ErrShortRead, err)
		}
	}

	return Frame{Header: hdr, Payload: payload}, nil
}

// WriteFrame writes one complete frame to w as a single logical send: the
// header immediately followed by the payload.
func WriteFrame(w io.Writer, f Frame) error {
	hdr, err := f.Header.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("protocol: writing frame header: %w", err)
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("protocol: writing frame payload: %w", err)
		}
	}
	return nil
}
