package schema

import (
	"github.com/pkg/errors"
)

// FieldType enumerates the declarable wire types. Unknown declarations
// parse as TypeOther, which decodes as raw text.
type FieldType string

const (
	TypeInt      FieldType = "int"
	TypeFloat    FieldType = "float"
	TypeDouble   FieldType = "double"
	TypeChar     FieldType = "char"
	TypeLong     FieldType = "long"
	TypeBool     FieldType = "bool"
	TypeBitfield FieldType = "bitfield"
	TypeOther    FieldType = "other"
)

// Numeric reports whether values of this type can carry min/max range
// constraints.
func (t FieldType) Numeric() bool {
	switch t {
	case TypeInt, TypeFloat, TypeDouble, TypeLong, TypeBool:
		return true
	default:
		return false
	}
}

// Integer reports whether this type decodes through the unsigned
// big-endian integer path.
func (t FieldType) Integer() bool {
	switch t {
	case TypeInt, TypeBool, TypeLong, TypeBitfield:
		return true
	default:
		return false
	}
}

// FieldSpec declares one field's type, sizing and validation rules.
type FieldSpec struct {
	Name              string
	Type              FieldType
	MinSize           int
	MaxSize           int
	IsDynamicArray    bool
	SizeDefiningField string
	MinValue          *float64
	MaxValue          *float64
	BitfieldsCount    *int
}

// Decomposed reports whether the field's raw value is split into
// sub-bitfield entries after decoding. Bitfield-typed fields are rendered
// whole, so the count acts as a decomposition width only on other types.
func (f *FieldSpec) Decomposed() bool {
	return f.Type != TypeBitfield && f.BitfieldsCount != nil && *f.BitfieldsCount > 0
}

// FieldList is an ordered sequence of field declarations. Order is decode
// order and is preserved exactly as declared.
type FieldList []FieldSpec

// ProtocolSchema maps endpoint identifiers to their field lists. It is
// immutable once loaded; decoding never mutates it.
type ProtocolSchema struct {
	Protocol  string
	endpoints []string
	fields    map[string]FieldList
}

func New(protocol string) *ProtocolSchema {
	return &ProtocolSchema{
		Protocol: protocol,
		fields:   make(map[string]FieldList),
	}
}

// Add appends an endpoint and its field list, preserving insertion order.
func (s *ProtocolSchema) Add(endpoint string, fields FieldList) error {
	if _, ok := s.fields[endpoint]; ok {
		return errors.Errorf("duplicate endpoint %s", endpoint)
	}
	s.endpoints = append(s.endpoints, endpoint)
	s.fields[endpoint] = fields
	return nil
}

// Endpoints returns endpoint identifiers in declaration order.
func (s *ProtocolSchema) Endpoints() []string {
	out := make([]string, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}

func (s *ProtocolSchema) Fields(endpoint string) (FieldList, bool) {
	fl, ok := s.fields[endpoint]
	return fl, ok
}

func (s *ProtocolSchema) Validate() error {
	for _, ep := range s.endpoints {
		if err := s.fields[ep].Validate(); err != nil {
			return errors.Wrapf(err, "endpoint %s", ep)
		}
	}
	return nil
}

// Validate rejects field lists whose decode behavior would be undefined:
// duplicate names, forward or non-integer size references, non-dividing
// decomposition widths, and sizes the extraction rules cannot honor.
func (l FieldList) Validate() error {
	seen := make(map[string]FieldType)
	for i := range l {
		f := &l[i]
		if f.Name == "" {
			return errors.New("field with empty name")
		}
		if _, ok := seen[f.Name]; ok {
			return errors.Errorf("duplicate field %s", f.Name)
		}
		if err := l.validateField(f, seen); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
		seen[f.Name] = f.Type
	}
	return nil
}

func (l FieldList) validateField(f *FieldSpec, earlier map[string]FieldType) error {
	if f.Type.Integer() {
		if f.MinSize < 1 || f.MinSize > 8 {
			return errors.Errorf("%s field size must be 1-8 bytes, got %d", f.Type, f.MinSize)
		}
	} else if f.MinSize < 0 {
		return errors.Errorf("negative min_size %d", f.MinSize)
	}

	if f.IsDynamicArray {
		if f.Type == TypeBitfield {
			return errors.New("bitfield fields cannot be dynamic")
		}
		if f.SizeDefiningField == "" {
			return errors.New("dynamic field requires size_defining_field")
		}
		refType, ok := earlier[f.SizeDefiningField]
		if !ok {
			return errors.Errorf("size_defining_field %s does not name an earlier field", f.SizeDefiningField)
		}
		if !refType.Integer() || refType == TypeBitfield {
			return errors.Errorf("size_defining_field %s is not an integer field", f.SizeDefiningField)
		}
		if f.MaxSize < f.MinSize {
			return errors.Errorf("max_size %d below min_size %d", f.MaxSize, f.MinSize)
		}
	} else if f.SizeDefiningField != "" {
		return errors.New("size_defining_field is only valid on dynamic fields")
	}

	switch f.Type {
	case TypeFloat:
		if !f.IsDynamicArray && f.MinSize != 4 {
			return errors.Errorf("float fields must be 4 bytes, got %d", f.MinSize)
		}
	case TypeDouble:
		if !f.IsDynamicArray && f.MinSize != 8 {
			return errors.Errorf("double fields must be 8 bytes, got %d", f.MinSize)
		}
	case TypeBitfield:
		if f.BitfieldsCount == nil {
			return errors.New("bitfield requires bitfields_count")
		}
		if *f.BitfieldsCount < 1 {
			return errors.Errorf("bitfields_count must be positive, got %d", *f.BitfieldsCount)
		}
	}

	if f.MinValue != nil || f.MaxValue != nil {
		if !f.Type.Numeric() {
			return errors.Errorf("min_value/max_value not valid on %s fields", f.Type)
		}
		if f.MinValue != nil && f.MaxValue != nil && *f.MinValue > *f.MaxValue {
			return errors.New("min_value exceeds max_value")
		}
	}

	if f.Decomposed() {
		count := *f.BitfieldsCount
		switch {
		case !f.Type.Integer():
			return errors.Errorf("decomposition not valid on %s fields", f.Type)
		case f.IsDynamicArray:
			return errors.New("decomposition requires a fixed field size")
		case (f.MinSize*8)%count != 0:
			return errors.Errorf("bitfields_count %d does not divide %d bits evenly", count, f.MinSize*8)
		}
	}

	return nil
}
