package schema

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultProtocolName is used when the schema file omits the protocol key.
const DefaultProtocolName = "CustomProtocol"

// fieldSpecJSON mirrors the on-disk field declaration shape.
type fieldSpecJSON struct {
	FieldType         string   `json:"field_type"`
	MinSize           int      `json:"min_size"`
	MaxSize           int      `json:"max_size"`
	IsDynamicArray    bool     `json:"is_dynamic_array"`
	SizeDefiningField string   `json:"size_defining_field"`
	MinValue          *float64 `json:"min_value"`
	MaxValue          *float64 `json:"max_value"`
	BitfieldsCount    *int     `json:"bitfields_count"`
}

// Load reads a DPI schema document of the shape
//
//	{"protocol": "...", "dpi": {"<endpoint>": {"<field>": {...}, ...}, ...}}
//
// Declaration order of endpoints and fields is significant and must survive
// loading, so the object keys are walked through the decoder's token stream
// rather than unmarshalled into Go maps. The returned schema is fully
// validated; a partially valid schema is never returned.
func Load(r io.Reader) (*ProtocolSchema, error) {
	dec := json.NewDecoder(r)
	s := New(DefaultProtocolName)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, errors.Wrap(err, "error reading schema document")
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "protocol":
			if err := dec.Decode(&s.Protocol); err != nil {
				return nil, errors.Wrap(err, "error reading protocol name")
			}
		case "dpi":
			if err := loadEndpoints(dec, s); err != nil {
				return nil, err
			}
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, errors.Wrap(err, "error reading schema document")
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid schema")
	}
	return s, nil
}

// LoadFile loads and validates the schema at the given path.
func LoadFile(path string) (*ProtocolSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening schema file")
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading schema file %s", path)
	}
	return s, nil
}

func loadEndpoints(dec *json.Decoder, s *ProtocolSchema) error {
	if err := expectDelim(dec, '{'); err != nil {
		return errors.Wrap(err, "error reading dpi section")
	}
	for dec.More() {
		endpoint, err := readKey(dec)
		if err != nil {
			return err
		}
		fields, err := loadFieldList(dec)
		if err != nil {
			return errors.Wrapf(err, "endpoint %s", endpoint)
		}
		if err := s.Add(endpoint, fields); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func loadFieldList(dec *json.Decoder) (FieldList, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var fields FieldList
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var raw fieldSpecJSON
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "error reading field %s", name)
		}
		fields = append(fields, FieldSpec{
			Name:              name,
			Type:              FieldType(raw.FieldType),
			MinSize:           raw.MinSize,
			MaxSize:           raw.MaxSize,
			IsDynamicArray:    raw.IsDynamicArray,
			SizeDefiningField: raw.SizeDefiningField,
			MinValue:          raw.MinValue,
			MaxValue:          raw.MaxValue,
			BitfieldsCount:    raw.BitfieldsCount,
		})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return fields, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", errors.Wrap(err, "error reading object key")
	}
	key, ok := tok.(string)
	if !ok {
		return "", errors.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, d json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != d {
		return errors.Errorf("expected %v, got %v", d, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	return dec.Decode(&raw)
}
