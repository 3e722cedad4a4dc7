package luagen

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"dpigen/dpi"
	"dpigen/schema"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func testSchema(t *testing.T) *schema.ProtocolSchema {
	s := schema.New("SensorNet")
	require.NoError(t, s.Add("192.168.1.10", schema.FieldList{
		{Name: "seq", Type: schema.TypeInt, MinSize: 2, MinValue: floatPtr(0), MaxValue: floatPtr(65535)},
		{Name: "flags", Type: schema.TypeBitfield, MinSize: 1, BitfieldsCount: intPtr(3)},
		{Name: "mode", Type: schema.TypeInt, MinSize: 1, BitfieldsCount: intPtr(2)},
		{Name: "temp", Type: schema.TypeFloat, MinSize: 4},
		{Name: "len", Type: schema.TypeInt, MinSize: 1},
		{Name: "payload", Type: schema.TypeChar, MinSize: 1, MaxSize: 16, IsDynamicArray: true, SizeDefiningField: "len"},
	}))
	require.NoError(t, s.Add("192.168.1.20", schema.FieldList{
		{Name: "uptime", Type: schema.TypeLong, MinSize: 8},
	}))
	require.NoError(t, s.Validate())
	return s
}

func TestRender_FullDissector(t *testing.T) {
	gen := NewGenerator(testSchema(t), Options{UDPPort: 10000})
	var buf bytes.Buffer
	require.NoError(t, gen.Render(&buf, "192.168.1.10", dpi.ModeFull))
	out := buf.String()

	require.Contains(t, out, `local SensorNet_192_168_1_10 = Proto("SensorNet_192_168_1_10", "SensorNet for 192.168.1.10")`)
	require.Contains(t, out, `local f_seq = ProtoField.uint16("SensorNet_192_168_1_10.seq", "Seq", base.DEC)`)
	require.Contains(t, out, `local f_flags = ProtoField.uint8("SensorNet_192_168_1_10.flags", "Flags (Bitfield)")`)
	require.Contains(t, out, `local f_temp = ProtoField.float("SensorNet_192_168_1_10.temp", "Temp")`)
	require.Contains(t, out, `local f_payload = ProtoField.string("SensorNet_192_168_1_10.payload", "Payload")`)
	require.Contains(t, out, `local bf_fields_mode = { f_mode_bf0, f_mode_bf1 }`)
	require.Contains(t, out, "SensorNet_192_168_1_10.fields = { f_seq, f_flags, f_mode, f_mode_bf0, f_mode_bf1, f_temp, f_len, f_payload }")

	// validation is generated inline
	require.Contains(t, out, `if actual_bit_count ~= 3 then`)
	require.Contains(t, out, `"Bitfield flags expected 3 bits set, got " .. actual_bit_count`)
	require.Contains(t, out, "local min_val = 0")
	require.Contains(t, out, "local max_val = 65535")
	require.Contains(t, out, `table.insert(error_messages, "seq out of range")`)

	// dynamic length handling
	require.Contains(t, out, "local dynamic_length = len")
	require.Contains(t, out, "if dynamic_length < 1 or dynamic_length > 16 then")
	require.Contains(t, out, `local payload = buffer(offset, dynamic_length):string()`)

	// float extraction goes through string.unpack
	require.Contains(t, out, `string.unpack(">f", temp_bytes)`)

	// decomposition loop
	require.Contains(t, out, "local bits_per_field = (1 * 8) / 2")
	require.Contains(t, out, `parsed_values["mode_bf" .. i] = bf_value`)

	// info column logic and registration
	require.Contains(t, out, `pinfo.cols.info = "[DPI Error: " .. msg .. "]"`)
	require.Contains(t, out, `local udp_port = DissectorTable.get("udp.port")`)
	require.Contains(t, out, "udp_port:add(10000, SensorNet_192_168_1_10)")
	require.NotContains(t, out, "Static: ")
	require.NotContains(t, out, "print(")
}

func TestRender_StaticDissector(t *testing.T) {
	gen := NewGenerator(testSchema(t), Options{UDPPort: 10000})
	var buf bytes.Buffer
	require.NoError(t, gen.Render(&buf, "192.168.1.10", dpi.ModeStatic))
	out := buf.String()

	require.Contains(t, out, `local SensorNet = Proto("SensorNet", "SensorNet")`)
	require.Contains(t, out, `pinfo.cols.info = "Static: " .. table.concat(parts, ", ")`)

	// structural checks survive, with their own local accumulators
	require.Contains(t, out, "local error_messages = {}")
	require.Contains(t, out, "if dynamic_length < 1 or dynamic_length > 16 then")
	require.Contains(t, out, `table.insert(error_messages, "Not enough bytes for seq")`)

	// value validation does not
	require.NotContains(t, out, "actual_bit_count")
	require.NotContains(t, out, "local min_val")
	require.NotContains(t, out, `pinfo.cols.info = "[DPI Error`)
}

func TestRender_VerbosePrinting(t *testing.T) {
	gen := NewGenerator(testSchema(t), Options{UDPPort: 10000, Verbose: true})
	var buf bytes.Buffer
	require.NoError(t, gen.Render(&buf, "192.168.1.20", dpi.ModeFull))
	out := buf.String()

	require.Contains(t, out, `print("Packet details (SensorNet_192_168_1_20):")`)
	require.Contains(t, out, `local uptime = buffer(offset, 8):uint64()`)
}

func TestRender_UnknownEndpoint(t *testing.T) {
	gen := NewGenerator(testSchema(t), Options{UDPPort: 10000})
	require.Error(t, gen.Render(ioutil.Discard, "10.9.9.9", dpi.ModeFull))
}

func TestGenerate_WritesAllArtifacts(t *testing.T) {
	dir, err := ioutil.TempDir("", "luagen_test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	gen := NewGenerator(testSchema(t), Options{OutputDir: dir, UDPPort: 12345})
	require.NoError(t, gen.Generate(context.Background()))

	// one artifact per endpoint plus the static artifact from the
	// first declared endpoint
	for _, name := range []string{
		"SensorNet_for_192_168_1_10.lua",
		"SensorNet_for_192_168_1_20.lua",
		"SensorNet.lua",
	} {
		data, err := ioutil.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Contains(t, string(data), "udp_port:add(12345, ")
	}

	static, err := ioutil.ReadFile(filepath.Join(dir, "SensorNet.lua"))
	require.NoError(t, err)
	require.Contains(t, string(static), `"Static: "`)
	require.Contains(t, string(static), "f_payload")
}
