// Package protocol implements the framed binary wire format shared by the
// index server and the table server: a fixed 4-byte header (4-bit opcode,
// 28-bit payload length) followed by a CBOR-encoded payload.
//
// The header layout and the message taxonomy are fixed by the protocol and
// must not change without a wire-compatibility break; both servers, the
// write-ahead log (which stores raw frames verbatim), and any client speak
// the same dialect defined here.
package protocol
