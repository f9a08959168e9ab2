package protocol

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Run("InsertMsg", func(t *testing.T) {
		want := InsertMsg{ID: 42, Vector: []float32{1, 2, 3, 4}}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodeInsert(b)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("DeleteMsg", func(t *testing.T) {
		want := DeleteMsg{ID: 7}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodeDelete(b)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("SearchMsg", func(t *testing.T) {
		want := SearchMsg{Vector: []float32{0.5, 0.25}, K: 10}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodeSearch(b)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("PutMsg with empty value", func(t *testing.T) {
		want := PutMsg{Key: []byte("user:1"), Value: []byte{}}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodePut(b)
		require.NoError(t, err)
		assert.Equal(t, want.Key, got.Key)
		assert.Empty(t, got.Value)
	})

	t.Run("GetMsg", func(t *testing.T) {
		want := GetMsg{Key: []byte("k")}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodeGet(b)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("DelMsg", func(t *testing.T) {
		want := DelMsg{Key: []byte("k")}
		b, err := Encode(want)
		require.NoError(t, err)
		got, err := DecodeDel(b)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("OpResult", func(t *testing.T) {
		want := OpResult{Code: 2, Message: "not found"}
		b, err := Encode(want)
		require.NoError(t, err)
		var got OpResult
		require.NoError(t, Decode(TypeError, b, &got))
		assert.Equal(t, want, got)
	})

	t.Run("MatchPair slice", func(t *testing.T) {
		want := []MatchPair{{ID: 1, Distance: 0.1}, {ID: 2, Distance: 0.2}}
		b, err := Encode(want)
		require.NoError(t, err)
		var got []MatchPair
		require.NoError(t, Decode(TypeMatchResult, b, &got))
		assert.Equal(t, want, got)
	})

	t.Run("empty MatchPair slice", func(t *testing.T) {
		var want []MatchPair
		frame, err := EncodeMatchResult(want)
		require.NoError(t, err)
		var got []MatchPair
		require.NoError(t, Decode(TypeMatchResult, frame.Payload, &got))
		assert.Empty(t, got)
	})
}

// TestDecodeAcceptsWiderIntWidths covers §4.2: "parsers MUST accept any
// unsigned-integer width up to 64 bits" even though encoders SHOULD use
// the minimum width. We hand-encode a CBOR array with a wider integer
// than Encode would have chosen and confirm Decode still accepts it.
func TestDecodeAcceptsWiderIntWidths(t *testing.T) {
	// 0x1b plus eight bytes is the 64-bit unsigned-integer form of 7,
	// whose minimal encoding would be the single byte 0x07.
	b, err := cbor.Marshal([]any{cbor.RawMessage{0x1b, 0, 0, 0, 0, 0, 0, 0, 7}, []float32{1, 2}})
	require.NoError(t, err)
	got, err := DecodeInsert(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
}

// TestDecodeAcceptsFloat64Elements covers §4.2: "parsers MUST also
// accept CBOR 64-bit floats and narrow them to f32."
func TestDecodeAcceptsFloat64Elements(t *testing.T) {
	b, err := cbor.Marshal([]any{uint64(1), []float64{1.5, 2.5}})
	require.NoError(t, err)
	got, err := DecodeInsert(b)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2.5}, got.Vector)
}

func TestDecodeRejectsWrongArity(t *testing.T) {
	b, err := cbor.Marshal([]any{uint64(1)}) // missing vector element
	require.NoError(t, err)
	_, err = DecodeInsert(b)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

func TestDecodeRejectsWrongElementType(t *testing.T) {
	b, err := cbor.Marshal([]any{"not-a-uint64", []float32{1, 2}})
	require.NoError(t, err)
	_, err = DecodeInsert(b)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

func TestEncodeRejectsOversizePayload(t *testing.T) {
	huge := make([]byte, MaxPayloadLen+1)
	_, err := Encode(PutMsg{Key: []byte("k"), Value: huge})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exceeds maximum"))
}
