package protocol

// Message payload shapes, one struct per CBOR definite-length array in the
// opcode table of §4.2. The blank `_ struct{} `cbor:",toarray"`` field
// is the fxamacker/cbor idiom for "encode/decode this struct as a CBOR
// array by field order" rather than as a map — it is what gives us the
// exact `[id, vector]`-shaped wire format instead of CBOR's default
// map-of-field-names encoding, and it is what rejects a frame whose array
// arity doesn't match the opcode (a protocol error per §7).

// InsertMsg is the MSG_INSERT payload: [id: u64, vector: [f32; D]].
type InsertMsg struct {
	_      struct{} `cbor:",toarray"`
	ID     uint64
	Vector []float32
}

// DeleteMsg is the MSG_DELETE payload: [id: u64].
type DeleteMsg struct {
	_  struct{} `cbor:",toarray"`
	ID uint64
}

// SearchMsg is the MSG_SEARCH payload: [vector: [f32; D], k: u32].
type SearchMsg struct {
	_      struct{} `cbor:",toarray"`
	Vector []float32
	K      uint32
}

// MatchPair is one element of a MSG_MATCH_RESULT payload.
type MatchPair struct {
	_        struct{} `cbor:",toarray"`
	ID       uint64
	Distance float32
}

// OpResult is the MSG_*_RESULT / MSG_ERROR payload shape:
// [code: u32, message: text].
type OpResult struct {
	_       struct{} `cbor:",toarray"`
	Code    uint32
	Message string
}

// PutMsg is the MSG_PUT payload: [key: bytes, value: bytes].
type PutMsg struct {
	_     struct{} `cbor:",toarray"`
	Key   []byte
	Value []byte
}

// GetMsg is the MSG_GET payload: [key: bytes]. DelMsg shares the same shape.
type GetMsg struct {
	_   struct{} `cbor:",toarray"`
	Key []byte
}

// DelMsg is the MSG_DEL payload: [key: bytes].
type DelMsg struct {
	_   struct{} `cbor:",toarray"`
	Key []byte
}

// GetResultMsg is the MSG_GET_RESULT payload: [value: bytes].
type GetResultMsg struct {
	_     struct{} `cbor:",toarray"`
	Value []byte
}
