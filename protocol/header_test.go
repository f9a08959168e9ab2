package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hdr  Header
	}{
		{"zero", Header{Type: 0, Len: 0}},
		{"insert, empty payload", Header{Type: TypeInsert, Len: 0}},
		{"max type", Header{Type: 0x0F, Len: 12345}},
		{"max len", Header{Type: TypeSearch, Len: MaxPayloadLen}},
		{"typical", Header{Type: TypePut, Len: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.hdr.Encode()
			require.NoError(t, err)
			got := DecodeHeader(raw)
			assert.Equal(t, tt.hdr, got)
		})
	}
}

func TestHeaderEncodeRejectsOversizeLen(t *testing.T) {
	_, err := Header{Type: TypeInsert, Len: MaxPayloadLen + 1}.Encode()
	assert.Error(t, err)
}

func TestHeaderEncodeRejectsOutOfRangeType(t *testing.T) {
	_, err := Header{Type: 0x10, Len: 0}.Encode()
	assert.Error(t, err)
}

func TestHeaderBitPacking(t *testing.T) {
	// top 4 bits type, low 28 bits len, big-endian on the wire — assert
	// the literal byte layout rather than just round-tripping.
	hdr := Header{Type: 0x5, Len: 0x0ABCDEF}
	raw, err := hdr.Encode()
	require.NoError(t, err)

	want := uint32(0x5)<<28 | 0x0ABCDEF
	got := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	assert.Equal(t, want, got)
}
