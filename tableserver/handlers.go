package tableserver

import (
	"context"
	"time"

	"github.com/victor-base/victordb/kvstore"
	"github.com/victor-base/victordb/protocol"
)

// Dispatch implements server.Dispatcher (§4.6). As in the index server,
// none of PUT/GET/DEL's logical outcomes close the connection — only a
// malformed frame does (§4.6: "the connection is NOT closed purely for a
// logical error; the connection IS closed on framing/parse failures
// only").
func (s *Server) Dispatch(frame protocol.Frame) (protocol.Frame, bool) {
	ctx := context.Background()
	switch frame.Header.Type {
	case protocol.TypePut:
		return s.handlePut(ctx, frame)
	case protocol.TypeGet:
		return s.handleGet(ctx, frame)
	case protocol.TypeDel:
		return s.handleDel(ctx, frame)
	default:
		resp, _ := protocol.EncodeResult(protocol.TypeError, uint32(kvstore.CodeSystem),
			"unrecognized opcode for table server")
		return resp, true
	}
}

func (s *Server) handlePut(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodePut(frame.Payload)
	if err != nil {
		return errorReply(err, true)
	}

	start := time.Now()
	err = s.store.Put(msg.Key, msg.Value)
	s.metrics.RecordPut(time.Since(start), err)
	if err != nil {
		return errorReply(err, false)
	}

	s.appendWAL(frame, "PUT")
	s.opAddCounter++

	resp, _ := protocol.EncodeResult(protocol.TypePutResult, 0, "")
	return resp, false
}

func (s *Server) handleGet(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodeGet(frame.Payload)
	if err != nil {
		return errorReply(err, true)
	}

	start := time.Now()
	value, err := s.store.Get(msg.Key)
	s.metrics.RecordGet(time.Since(start), err)
	if err != nil {
		// A miss is a logical error (§4.6: "On miss ... respond ERROR
		// with code NOT_FOUND"), never a closed connection.
		return errorReply(err, false)
	}

	resp, _ := protocol.EncodeGetResult(value)
	return resp, false
}

func (s *Server) handleDel(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodeDel(frame.Payload)
	if err != nil {
		return errorReply(err, true)
	}

	err = s.store.Del(msg.Key)
	s.logger.LogDelete(ctx, string(msg.Key), err)
	if err != nil {
		// §4.6: DEL on a miss responds DEL_RESULT with KEY_NOT_FOUND, not
		// ERROR, and does not append to the WAL.
		if kerr, ok := err.(*kvstore.Error); ok {
			resp, _ := protocol.EncodeResult(protocol.TypeDelResult, uint32(kerr.Code), kerr.Message)
			return resp, false
		}
		return errorReply(err, false)
	}

	s.appendWAL(frame, "DEL")
	s.opDelCounter++

	resp, _ := protocol.EncodeResult(protocol.TypeDelResult, 0, "")
	return resp, false
}

func (s *Server) appendWAL(frame protocol.Frame, op string) {
	if s.wal == nil {
		return
	}
	if err := s.wal.Append(frame); err != nil {
		s.logger.LogWALWriteFailure(op, err)
	}
}

// errorReply maps an error onto an ERROR frame. forceClose is true for
// protocol-class decode failures, false for logical/system errors from
// the collaborator (§7).
func errorReply(err error, forceClose bool) (protocol.Frame, bool) {
	if protocol.IsProtocolError(err) {
		resp, _ := protocol.EncodeResult(protocol.TypeError, uint32(kvstore.CodeSystem), err.Error())
		return resp, true
	}

	code := uint32(kvstore.CodeSystem)
	if ke, ok := err.(*kvstore.Error); ok {
		code = uint32(ke.Code)
	}
	resp, _ := protocol.EncodeResult(protocol.TypeError, code, err.Error())
	return resp, forceClose
}
