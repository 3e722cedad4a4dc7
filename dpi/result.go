package dpi

import (
	"strconv"
)

// ErrorKind identifies the validation failure classes a decode can
// accumulate. Only ErrInsufficientBytes halts processing.
type ErrorKind int

const (
	ErrInsufficientBytes ErrorKind = iota
	ErrDynamicLengthOutOfRange
	ErrValueOutOfRange
	ErrBitPopulationMismatch
)

// FieldError records one validation failure against a named field.
type FieldError struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Fatal reports whether this error halts processing of subsequent fields.
func (e *FieldError) Fatal() bool {
	return e.Kind == ErrInsufficientBytes
}

type valueKind int

const (
	valueUint valueKind = iota
	valueInt
	valueFloat
	valueText
	valueBits
)

// ParsedValue is one decoded field value: a number, text, or a
// binary-digit string for bit-vector fields.
type ParsedValue struct {
	kind valueKind
	u    uint64
	i    int64
	f    float64
	s    string
}

func uintValue(v uint64) ParsedValue {
	return ParsedValue{kind: valueUint, u: v}
}

func intValue(v int64) ParsedValue {
	return ParsedValue{kind: valueInt, i: v}
}

func floatValue(v float64) ParsedValue {
	return ParsedValue{kind: valueFloat, f: v}
}

func textValue(v string) ParsedValue {
	return ParsedValue{kind: valueText, s: v}
}

func bitsValue(v string) ParsedValue {
	return ParsedValue{kind: valueBits, s: v}
}

// Numeric returns the value widened to float64 for range comparison.
// Text and bit-vector values are not numeric.
func (v ParsedValue) Numeric() (float64, bool) {
	switch v.kind {
	case valueUint:
		return float64(v.u), true
	case valueInt:
		return float64(v.i), true
	case valueFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Length returns the value narrowed to a byte length, for fields that
// define a sibling's dynamic size.
func (v ParsedValue) Length() (int, bool) {
	switch v.kind {
	case valueUint:
		return int(v.u), true
	case valueInt:
		return int(v.i), true
	default:
		return 0, false
	}
}

func (v ParsedValue) String() string {
	switch v.kind {
	case valueUint:
		return strconv.FormatUint(v.u, 10)
	case valueInt:
		return strconv.FormatInt(v.i, 10)
	case valueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// DecodeResult carries the decoded values in insertion order, the
// accumulated errors in occurrence order, and the fatal flag. One is
// created fresh per decode and holds no cross-invocation state.
type DecodeResult struct {
	Errors []*FieldError
	Fatal  bool

	mode   Mode
	names  []string
	values map[string]ParsedValue
}

func newDecodeResult(mode Mode) *DecodeResult {
	return &DecodeResult{
		mode:   mode,
		values: make(map[string]ParsedValue),
	}
}

// Get returns the decoded value for a field name, including synthesized
// sub-bitfield entries.
func (r *DecodeResult) Get(name string) (ParsedValue, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns field names in the order their values were stored.
func (r *DecodeResult) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *DecodeResult) put(name string, v ParsedValue) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

func (r *DecodeResult) appendError(kind ErrorKind, field, message string) {
	r.Errors = append(r.Errors, &FieldError{
		Kind:    kind,
		Field:   field,
		Message: message,
	})
}
