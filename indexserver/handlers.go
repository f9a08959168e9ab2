package indexserver

import (
	"context"
	"strconv"
	"time"

	"github.com/victor-base/victordb/protocol"
	"github.com/victor-base/victordb/vectorindex"
)

// Dispatch implements server.Dispatcher: route one received frame to its
// opcode handler. Protocol-class failures (malformed CBOR, wrong arity)
// close the connection after the ERROR reply; logical failures
// (duplicate id, not found, dimension mismatch) do not (§7, and §9's
// resolved open question on wrong-dimension vectors).
func (s *Server) Dispatch(frame protocol.Frame) (protocol.Frame, bool) {
	ctx := context.Background()
	switch frame.Header.Type {
	case protocol.TypeInsert:
		return s.handleInsert(ctx, frame)
	case protocol.TypeDelete:
		return s.handleDelete(ctx, frame)
	case protocol.TypeSearch:
		return s.handleSearch(ctx, frame)
	default:
		resp, _ := protocol.EncodeResult(protocol.TypeError, uint32(vectorindex.CodeSystem),
			"unrecognized opcode for index server")
		return resp, true
	}
}

func (s *Server) handleInsert(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodeInsert(frame.Payload)
	if err != nil {
		return errorReply(err)
	}

	start := time.Now()
	err = s.index.Insert(msg.ID, msg.Vector)
	s.metrics.RecordInsert(time.Since(start), err)
	s.logger.LogInsert(ctx, msg.ID, len(msg.Vector), err)
	if err != nil {
		return errorReply(err)
	}

	s.appendWAL(frame, "INSERT")
	s.opAddCounter++

	resp, _ := protocol.EncodeResult(protocol.TypeInsertResult, 0, "")
	return resp, false
}

func (s *Server) handleDelete(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodeDelete(frame.Payload)
	if err != nil {
		return errorReply(err)
	}

	start := time.Now()
	err = s.index.Delete(msg.ID)
	s.metrics.RecordDelete(time.Since(start), err)
	s.logger.LogDelete(ctx, strconv.FormatUint(msg.ID, 10), err)
	if err != nil {
		return errorReply(err)
	}

	s.appendWAL(frame, "DELETE")
	s.opDelCounter++

	resp, _ := protocol.EncodeResult(protocol.TypeDeleteResult, 0, "")
	return resp, false
}

func (s *Server) handleSearch(ctx context.Context, frame protocol.Frame) (protocol.Frame, bool) {
	msg, err := protocol.DecodeSearch(frame.Payload)
	if err != nil {
		return errorReply(err)
	}

	start := time.Now()
	hits, err := s.index.Search(msg.Vector, int(msg.K))
	s.metrics.RecordSearch(int(msg.K), time.Since(start), err)
	s.logger.LogSearch(ctx, int(msg.K), len(hits), err)
	if err != nil {
		return errorReply(err)
	}

	pairs := make([]protocol.MatchPair, len(hits))
	for i, h := range hits {
		pairs[i] = protocol.MatchPair{ID: h.ID, Distance: h.Distance}
	}
	resp, _ := protocol.EncodeMatchResult(pairs)
	return resp, false
}

// appendWAL appends frame to the WAL if one is attached (it is nil
// during replay, §4.3) and the mutation was already applied. A write
// failure is logged and tolerated, not rolled back (§7, §9 open
// question #2: the mutation already committed in memory).
func (s *Server) appendWAL(frame protocol.Frame, op string) {
	if s.wal == nil {
		return
	}
	if err := s.wal.Append(frame); err != nil {
		s.logger.LogWALWriteFailure(op, err)
	}
}

// errorReply maps a collaborator error (or, via DecodeInsert/et al, a
// *protocol.ProtocolError) onto an ERROR frame and the close-after
// decision: protocol errors close the connection, logical/system
// collaborator errors do not.
func errorReply(err error) (protocol.Frame, bool) {
	if protocol.IsProtocolError(err) {
		resp, _ := protocol.EncodeResult(protocol.TypeError, uint32(vectorindex.CodeSystem), err.Error())
		return resp, true
	}

	code := uint32(vectorindex.CodeSystem)
	if ve, ok := err.(*vectorindex.Error); ok {
		code = uint32(ve.Code)
	}
	resp, _ := protocol.EncodeResult(protocol.TypeError, code, err.Error())
	return resp, false
}
