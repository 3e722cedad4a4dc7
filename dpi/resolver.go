package dpi

import (
	"dpigen/schema"
)

// RuleKind is the extraction class a field declaration resolves to.
type RuleKind int

const (
	// RuleUint reads the field's bytes as a big-endian unsigned integer.
	RuleUint RuleKind = iota
	// RuleUint64 is the 8-byte long form.
	RuleUint64
	// RuleInt32 reinterprets the low 32 bits as a signed integer. Long
	// fields of any declared size other than 8 resolve here; the
	// asymmetry is deliberate and matches the deployed dissectors.
	RuleInt32
	// RuleFloat32 reads a big-endian IEEE 754 single.
	RuleFloat32
	// RuleFloat64 reads a big-endian IEEE 754 double.
	RuleFloat64
	// RuleText reads the raw bytes as text.
	RuleText
	// RuleBits reads an unsigned bit vector rendered as a binary string.
	RuleBits
)

// Rule is a concrete extraction and validation plan for one field.
type Rule struct {
	Kind RuleKind

	// WidthClass is the declared display width in bytes (1, 2, 4 or 8).
	// Sizes outside that set fall back to the 4-byte class; this is a
	// documented degraded behavior, not an error.
	WidthClass int

	// CheckRange is set for numeric fields carrying both range bounds.
	CheckRange bool

	// CheckBits is set for bit-vector fields, whose population count
	// must equal the declared bitfields_count.
	CheckBits bool
}

// Resolve maps a field declaration to its extraction rule. It is a pure
// function of the declaration.
func Resolve(spec schema.FieldSpec) Rule {
	var rule Rule
	switch spec.Type {
	case schema.TypeBool:
		rule.Kind = RuleUint
		rule.WidthClass = 1
	case schema.TypeInt:
		rule.Kind = RuleUint
		rule.WidthClass = widthClass(spec.MinSize)
	case schema.TypeLong:
		if spec.MinSize == 8 {
			rule.Kind = RuleUint64
			rule.WidthClass = 8
		} else {
			rule.Kind = RuleInt32
			rule.WidthClass = 4
		}
	case schema.TypeFloat:
		rule.Kind = RuleFloat32
		rule.WidthClass = 4
	case schema.TypeDouble:
		rule.Kind = RuleFloat64
		rule.WidthClass = 8
	case schema.TypeBitfield:
		rule.Kind = RuleBits
		rule.WidthClass = widthClass(spec.MinSize)
		rule.CheckBits = true
	default:
		// char and any unrecognized declaration decode as text
		rule.Kind = RuleText
	}

	if spec.Type.Numeric() && spec.MinValue != nil && spec.MaxValue != nil {
		rule.CheckRange = true
	}
	return rule
}

func widthClass(size int) int {
	switch size {
	case 1, 2, 4, 8:
		return size
	default:
		return 4
	}
}
