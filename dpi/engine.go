package dpi

import (
	"encoding/binary"
	"fmt"
	"math"

	"dpigen/schema"
)

// Mode selects how much validation a decoder performs.
type Mode int

const (
	// ModeFull runs every declared validation: value ranges, bit
	// population counts, and the structural checks.
	ModeFull Mode = iota
	// ModeStatic decodes structure only. Bounds and dynamic-length-range
	// checks still apply; range and bit-population validation do not.
	ModeStatic
)

// TraceFunc observes each stored field as it is decoded. It is optional
// diagnostic output and never part of the decode contract.
type TraceFunc func(name string, value ParsedValue, offset, length int)

// Options configures a Decoder. The zero value is a fully validating
// decoder with no trace hook.
type Options struct {
	Mode  Mode
	Trace TraceFunc
}

// Decoder walks buffers against one field list. It is safe for concurrent
// use: the field list is never mutated and all decode state is call-local.
type Decoder struct {
	fields schema.FieldList
	opts   Options
}

func NewDecoder(fields schema.FieldList, opts Options) *Decoder {
	return &Decoder{
		fields: fields,
		opts:   opts,
	}
}

// Decode runs a single linear pass over buf in declared field order. It
// never returns an error: every input, however malformed, yields a
// DecodeResult. A field whose resolved length exceeds the remaining buffer
// is the only fatal condition; it halts all further field processing.
func (d *Decoder) Decode(buf []byte) *DecodeResult {
	res := newDecodeResult(d.opts.Mode)
	offset := 0

	for i := range d.fields {
		spec := &d.fields[i]
		rule := Resolve(*spec)

		length := spec.MinSize
		if spec.IsDynamicArray {
			length = d.resolveLength(res, spec)
			if length < spec.MinSize || length > spec.MaxSize {
				res.appendError(ErrDynamicLengthOutOfRange, spec.Name,
					fmt.Sprintf("%s length out of range", spec.Name))
			}
		}

		// A negative length can only come from a size-defining long
		// field overflowing int; treat it like a short buffer.
		if length < 0 || len(buf)-offset < length {
			res.appendError(ErrInsufficientBytes, spec.Name,
				fmt.Sprintf("Not enough bytes for %s", spec.Name))
			res.Fatal = true
			break
		}

		raw := buf[offset : offset+length]
		value, rawUint := extract(rule, raw)

		if d.opts.Mode == ModeFull {
			d.validate(res, spec, rule, value, rawUint)
		}

		res.put(spec.Name, value)
		if d.opts.Trace != nil {
			d.opts.Trace(spec.Name, value, offset, length)
		}

		if spec.Decomposed() {
			d.decompose(res, spec, rawUint, length)
		}

		offset += length
	}
	return res
}

func (d *Decoder) resolveLength(res *DecodeResult, spec *schema.FieldSpec) int {
	v, ok := res.Get(spec.SizeDefiningField)
	if !ok {
		return 0
	}
	length, _ := v.Length()
	return length
}

func (d *Decoder) validate(res *DecodeResult, spec *schema.FieldSpec, rule Rule, value ParsedValue, rawUint uint64) {
	if rule.CheckBits {
		got := Popcount(rawUint)
		if got != *spec.BitfieldsCount {
			res.appendError(ErrBitPopulationMismatch, spec.Name,
				fmt.Sprintf("Bitfield %s expected %d bits set, got %d", spec.Name, *spec.BitfieldsCount, got))
		}
		return
	}
	if rule.CheckRange {
		num, ok := value.Numeric()
		if ok && (num < *spec.MinValue || num > *spec.MaxValue) {
			res.appendError(ErrValueOutOfRange, spec.Name,
				fmt.Sprintf("%s out of range", spec.Name))
		}
	}
}

func (d *Decoder) decompose(res *DecodeResult, spec *schema.FieldSpec, rawUint uint64, length int) {
	groups, err := Decompose(rawUint, length*8, *spec.BitfieldsCount)
	if err != nil {
		// unreachable for validated schemas; decomposition is
		// rejected at load time unless the width divides evenly
		return
	}
	for i, g := range groups {
		res.put(fmt.Sprintf("%s_bf%d", spec.Name, i), uintValue(g))
	}
}

// extract interprets raw per the rule, returning the parsed value and the
// raw unsigned reading used for bit-level validation and decomposition.
func extract(rule Rule, raw []byte) (ParsedValue, uint64) {
	switch rule.Kind {
	case RuleUint, RuleUint64:
		v := readUint(raw)
		return uintValue(v), v
	case RuleInt32:
		v := readUint(raw)
		return intValue(int64(int32(v))), v
	case RuleFloat32:
		var b [4]byte
		copy(b[:], raw)
		return floatValue(float64(math.Float32frombits(binary.BigEndian.Uint32(b[:])))), 0
	case RuleFloat64:
		var b [8]byte
		copy(b[:], raw)
		return floatValue(math.Float64frombits(binary.BigEndian.Uint64(b[:]))), 0
	case RuleBits:
		v := readUint(raw)
		return bitsValue(BinaryString(v, len(raw)*8)), v
	default:
		return textValue(string(raw)), 0
	}
}

// readUint reads up to 8 bytes as a big-endian unsigned integer. Wider
// slices contribute their trailing 8 bytes; schema validation keeps
// integer declarations within 8 bytes, so this only affects dynamic
// fields resolved to oversized lengths.
func readUint(b []byte) uint64 {
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
