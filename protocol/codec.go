package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// decMode is the shared CBOR decode mode for every payload on the wire.
//
// MaxArrayElements bounds how large an array the decoder will build from a
// length prefix before it has seen that many elements — without this, a
// frame claiming a multi-million-element vector could make the decoder
// pre-allocate memory for bytes that never arrive. The frame's own 28-bit
// length field already bounds the number of bytes read off the socket
// (ReadFrame never reads past Header.Len); this bounds the decoder's
// element-count guess on top of that — a length field is never trusted as
// an allocation hint on its own.
var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      64,
		MaxNestedLevels:  8,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building cbor decode mode: %v", err))
	}
	return mode
}()

// encMode is the shared CBOR encode mode. Core encoding, no canonical-map
// sorting needed since every payload is a toarray struct or slice.
var encMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building cbor encode mode: %v", err))
	}
	return mode
}()

// Encode marshals v (one of the message types in messages.go) to CBOR and
// rejects any payload that would not fit in the 28-bit frame length field.
func Encode(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding payload: %w", err)
	}
	if len(b) > MaxPayloadLen {
		return nil, fmt.Errorf("protocol: encoded payload of %d bytes exceeds maximum %d", len(b), MaxPayloadLen)
	}
	return b, nil
}

// Decode unmarshals a frame payload of opcode op into v, wrapping any
// shape or type mismatch as a *ProtocolError. v must be a pointer to one
// of the message types in messages.go.
func Decode(op Type, payload []byte, v any) error {
	if err := decMode.Unmarshal(payload, v); err != nil {
		return newProtocolError(op, err)
	}
	return nil
}

// EncodeFrame builds a ready-to-send Frame for opcode op from v.
func EncodeFrame(op Type, v any) (Frame, error) {
	payload, err := Encode(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: Header{Type: op, Len: uint32(len(payload))}, Payload: payload}, nil
}

// DecodeInsert decodes a MSG_INSERT payload.
func DecodeInsert(payload []byte) (InsertMsg, error) {
	var m InsertMsg
	err := Decode(TypeInsert, payload, &m)
	return m, err
}

// DecodeDelete decodes a MSG_DELETE payload.
func DecodeDelete(payload []byte) (DeleteMsg, error) {
	var m DeleteMsg
	err := Decode(TypeDelete, payload, &m)
	return m, err
}

// DecodeSearch decodes a MSG_SEARCH payload.
func DecodeSearch(payload []byte) (SearchMsg, error) {
	var m SearchMsg
	err := Decode(TypeSearch, payload, &m)
	return m, err
}

// DecodePut decodes a MSG_PUT payload.
func DecodePut(payload []byte) (PutMsg, error) {
	var m PutMsg
	err := Decode(TypePut, payload, &m)
	return m, err
}

// DecodeGet decodes a MSG_GET payload.
func DecodeGet(payload []byte) (GetMsg, error) {
	var m GetMsg
	err := Decode(TypeGet, payload, &m)
	return m, err
}

// DecodeDel decodes a MSG_DEL payload.
func DecodeDel(payload []byte) (DelMsg, error) {
	var m DelMsg
	err := Decode(TypeDel, payload, &m)
	return m, err
}

// EncodeResult builds an OP_RESULT-shaped frame (INSERT_RESULT,
// DELETE_RESULT, PUT_RESULT, DEL_RESULT or ERROR — the shape is identical,
// only the header type differs).
func EncodeResult(op Type, code uint32, message string) (Frame, error) {
	return EncodeFrame(op, OpResult{Code: code, Message: message})
}

// EncodeMatchResult builds a MATCH_RESULT frame from a slice of hits. An
// empty or nil slice is valid and encodes as an empty CBOR array.
func EncodeMatchResult(hits []MatchPair) (Frame, error) {
	return EncodeFrame(TypeMatchResult, hits)
}

// EncodeGetResult builds a GET_RESULT frame.
func EncodeGetResult(value []byte) (Frame, error) {
	return EncodeFrame(TypeGetResult, GetResultMsg{Value: value})
}
