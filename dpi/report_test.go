package dpi

import (
	"testing"

	"dpigen/schema"

	"github.com/stretchr/testify/require"
)

func TestSummary_AggregatesErrorsInOrder(t *testing.T) {
	fields := schema.FieldList{
		{Name: "len", Type: schema.TypeInt, MinSize: 1},
		{Name: "payload", Type: schema.TypeChar, MinSize: 2, MaxSize: 3, IsDynamicArray: true, SizeDefiningField: "len"},
		{Name: "flags", Type: schema.TypeBitfield, MinSize: 1, BitfieldsCount: intPtr(2)},
	}
	dec := NewDecoder(fields, Options{})
	res := dec.Decode([]byte{0x04, 'a', 'b', 'c', 'd', 0x01})

	require.Len(t, res.Errors, 2)
	require.Equal(t,
		"[DPI Error: payload length out of range; Bitfield flags expected 2 bits set, got 1]",
		res.Summary())
}

func TestSummary_SortsPairsLexicographically(t *testing.T) {
	fields := schema.FieldList{
		{Name: "zulu", Type: schema.TypeInt, MinSize: 1},
		{Name: "alpha", Type: schema.TypeInt, MinSize: 1},
	}
	res := NewDecoder(fields, Options{}).Decode([]byte{0x01, 0x02})
	require.Equal(t, "alpha=2, zulu=1", res.Summary())
}
