package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestFieldListValidate(t *testing.T) {
	tests := []struct {
		name    string
		fields  FieldList
		wantErr string
	}{
		{
			name: "valid list",
			fields: FieldList{
				{Name: "len", Type: TypeInt, MinSize: 1},
				{Name: "flags", Type: TypeBitfield, MinSize: 1, BitfieldsCount: intPtr(3)},
				{Name: "mode", Type: TypeInt, MinSize: 2, BitfieldsCount: intPtr(4)},
				{Name: "body", Type: TypeChar, MinSize: 1, MaxSize: 8, IsDynamicArray: true, SizeDefiningField: "len"},
			},
		},
		{
			name: "duplicate field name",
			fields: FieldList{
				{Name: "a", Type: TypeInt, MinSize: 1},
				{Name: "a", Type: TypeInt, MinSize: 1},
			},
			wantErr: "duplicate field",
		},
		{
			name: "forward size reference",
			fields: FieldList{
				{Name: "body", Type: TypeChar, MinSize: 1, MaxSize: 8, IsDynamicArray: true, SizeDefiningField: "len"},
				{Name: "len", Type: TypeInt, MinSize: 1},
			},
			wantErr: "does not name an earlier field",
		},
		{
			name: "non-integer size reference",
			fields: FieldList{
				{Name: "len", Type: TypeChar, MinSize: 1},
				{Name: "body", Type: TypeChar, MinSize: 1, MaxSize: 8, IsDynamicArray: true, SizeDefiningField: "len"},
			},
			wantErr: "not an integer field",
		},
		{
			name: "bitfield size reference",
			fields: FieldList{
				{Name: "len", Type: TypeBitfield, MinSize: 1, BitfieldsCount: intPtr(1)},
				{Name: "body", Type: TypeChar, MinSize: 1, MaxSize: 8, IsDynamicArray: true, SizeDefiningField: "len"},
			},
			wantErr: "not an integer field",
		},
		{
			name: "bitfield missing count",
			fields: FieldList{
				{Name: "flags", Type: TypeBitfield, MinSize: 1},
			},
			wantErr: "requires bitfields_count",
		},
		{
			name: "dynamic bitfield",
			fields: FieldList{
				{Name: "len", Type: TypeInt, MinSize: 1},
				{Name: "flags", Type: TypeBitfield, MinSize: 1, MaxSize: 8, IsDynamicArray: true, SizeDefiningField: "len", BitfieldsCount: intPtr(1)},
			},
			wantErr: "cannot be dynamic",
		},
		{
			name: "non-dividing decomposition",
			fields: FieldList{
				{Name: "mode", Type: TypeInt, MinSize: 2, BitfieldsCount: intPtr(3)},
			},
			wantErr: "does not divide",
		},
		{
			name: "decomposition on text",
			fields: FieldList{
				{Name: "mode", Type: TypeChar, MinSize: 2, BitfieldsCount: intPtr(2)},
			},
			wantErr: "decomposition not valid",
		},
		{
			name: "oversized integer",
			fields: FieldList{
				{Name: "big", Type: TypeInt, MinSize: 16},
			},
			wantErr: "must be 1-8 bytes",
		},
		{
			name: "wrong float width",
			fields: FieldList{
				{Name: "temp", Type: TypeFloat, MinSize: 2},
			},
			wantErr: "must be 4 bytes",
		},
		{
			name: "wrong double width",
			fields: FieldList{
				{Name: "temp", Type: TypeDouble, MinSize: 4},
			},
			wantErr: "must be 8 bytes",
		},
		{
			name: "range on text field",
			fields: FieldList{
				{Name: "body", Type: TypeChar, MinSize: 4, MinValue: floatPtr(0), MaxValue: floatPtr(1)},
			},
			wantErr: "not valid on char",
		},
		{
			name: "inverted range",
			fields: FieldList{
				{Name: "seq", Type: TypeInt, MinSize: 2, MinValue: floatPtr(10), MaxValue: floatPtr(1)},
			},
			wantErr: "min_value exceeds max_value",
		},
		{
			name: "size reference on fixed field",
			fields: FieldList{
				{Name: "len", Type: TypeInt, MinSize: 1},
				{Name: "body", Type: TypeChar, MinSize: 4, SizeDefiningField: "len"},
			},
			wantErr: "only valid on dynamic fields",
		},
		{
			name: "max below min",
			fields: FieldList{
				{Name: "len", Type: TypeInt, MinSize: 1},
				{Name: "body", Type: TypeChar, MinSize: 4, MaxSize: 2, IsDynamicArray: true, SizeDefiningField: "len"},
			},
			wantErr: "below min_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fields.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProtocolSchema_DuplicateEndpoint(t *testing.T) {
	s := New("P")
	require.NoError(t, s.Add("ep", FieldList{{Name: "a", Type: TypeInt, MinSize: 1}}))
	require.Error(t, s.Add("ep", FieldList{{Name: "b", Type: TypeInt, MinSize: 1}}))
}
