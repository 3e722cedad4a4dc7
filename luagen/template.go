package luagen

import "text/template"

// The dissector body mirrors the decode engine step for step: resolve
// length, structural checks, extract, validate, decompose, advance. Static
// artifacts keep the structural checks and their local accumulators but
// carry no value-range or bit-population validation, and always render the
// prefixed summary form.
var dissectorTemplate = template.Must(template.New("dissector").Parse(`-- Wireshark Lua dissector for {{.Protocol}}{{if not .Static}} on endpoint {{.Endpoint}}{{end}}
-- Generated by dpigen; do not edit.

local {{.ProtoName}} = Proto("{{.ProtoName}}", "{{.Description}}")

{{range .Fields}}{{range .Decls}}{{.}}
{{end}}{{end}}
{{.ProtoName}}.fields = { {{.FieldRegistry}} }

function {{.ProtoName}}.dissector(buffer, pinfo, tree)
    if buffer:len() == 0 then return end
    pinfo.cols.protocol = "{{.Protocol}}"
    local subtree = tree:add({{.ProtoName}}, buffer(), "{{.Description}}")
    local offset = 0
    local dpi_error = false
    local error_messages = {}
    local parsed_values = {}

    local function popcount(x)
        local count = 0
        while x > 0 do
            count = count + (x % 2)
            x = math.floor(x / 2)
        end
        return count
    end

    local function to_binary_str(num, bits)
        local s = ""
        for i = bits - 1, 0, -1 do
            local bit_val = bit.rshift(num, i)
            s = s .. (bit.band(bit_val, 1) == 1 and "1" or "0")
        end
        return s
    end
{{range .Fields}}
    -- Field: {{.Name}}
{{- if .Dynamic}}
    local dynamic_length = {{.SizeField}}
    if dynamic_length < {{.MinSize}} or dynamic_length > {{.MaxSize}} then
        subtree:add_expert_info(PI_MALFORMED, PI_ERROR, "{{.Name}} length out of range")
        dpi_error = true
        table.insert(error_messages, "{{.Name}} length out of range")
    end
{{- end}}
    if buffer:len() < offset + {{.Length}} then
        subtree:add_expert_info(PI_MALFORMED, PI_ERROR, "Not enough bytes for {{.Name}}")
        dpi_error = true
        table.insert(error_messages, "Not enough bytes for {{.Name}}")
        return
    end
{{- if eq .Extract "uint64"}}
    local {{.Name}} = buffer(offset, {{.Length}}):uint64()
{{- else if eq .Extract "uint"}}
    local {{.Name}} = buffer(offset, {{.Length}}):uint()
{{- else if eq .Extract "float"}}
    local {{.Name}}_bytes = buffer(offset, {{.Length}}):bytes():raw()
    local {{.Name}} = string.unpack(">f", {{.Name}}_bytes)
{{- else if eq .Extract "double"}}
    local {{.Name}}_bytes = buffer(offset, {{.Length}}):bytes():raw()
    local {{.Name}} = string.unpack(">d", {{.Name}}_bytes)
{{- else}}
    local {{.Name}} = buffer(offset, {{.Length}}):string()
{{- end}}
    local {{.Name}}_item = subtree:add(f_{{.Name}}, buffer(offset, {{.Length}}))
{{- if .Bitfield}}
    local num_bits = {{.MinSize}} * 8
{{- if .Validate}}
    local actual_bit_count = popcount({{.Name}})
    if actual_bit_count ~= {{.BitfieldsCount}} then
        {{.Name}}_item:add_expert_info(PI_MALFORMED, PI_ERROR, "Bitfield {{.Name}} expected {{.BitfieldsCount}} bits set, got " .. actual_bit_count)
        dpi_error = true
        table.insert(error_messages, "Bitfield {{.Name}} expected {{.BitfieldsCount}} bits set, got " .. actual_bit_count)
    end
{{- end}}
    local binary_str = to_binary_str({{.Name}}, num_bits)
    {{.Name}}_item:append_text(" (" .. binary_str .. ")")
    parsed_values["{{.Name}}"] = binary_str
{{- else}}
{{- if .HasRange}}
    do
        local min_val = {{.MinValue}}
        local max_val = {{.MaxValue}}
        if {{.Name}} < min_val or {{.Name}} > max_val then
            {{.Name}}_item:add_expert_info(PI_MALFORMED, PI_ERROR, "Value out of range for {{.Name}}")
            dpi_error = true
            table.insert(error_messages, "{{.Name}} out of range")
        end
    end
{{- end}}
    parsed_values["{{.Name}}"] = {{.Name}}
{{- end}}
    offset = offset + {{.Length}}
{{- if .Decompose}}
    do
        local bits_per_field = ({{.MinSize}} * 8) / {{.BitfieldsCount}}
        for i = 0, {{.BitfieldsCount}} - 1 do
            local shift = (({{.BitfieldsCount}} - 1 - i) * bits_per_field)
            local mask = (1 << bits_per_field) - 1
            local bf_value = bit.band(bit.rshift({{.Name}}, shift), mask)
            subtree:add(bf_fields_{{.Name}}[i+1], bf_value)
            parsed_values["{{.Name}}_bf" .. i] = bf_value
        end
    end
{{- end}}
{{end}}
{{- if .Verbose}}
    print("Packet details ({{.ProtoName}}):")
    for k, v in pairs(parsed_values) do
        print("  " .. k .. " = " .. tostring(v))
    end
{{end}}
{{- if .Static}}
    local parts = {}
    for k, v in pairs(parsed_values) do
        table.insert(parts, k .. "=" .. tostring(v))
    end
    table.sort(parts)
    pinfo.cols.info = "Static: " .. table.concat(parts, ", ")
{{- else}}
    if dpi_error then
        local msg = table.concat(error_messages, "; ")
        pinfo.cols.info = "[DPI Error: " .. msg .. "]"
        subtree:add_expert_info(PI_PROTOCOL, PI_ERROR, "DPI Error in this packet")
    else
        local parts = {}
        for k, v in pairs(parsed_values) do
            table.insert(parts, k .. "=" .. tostring(v))
        end
        table.sort(parts)
        pinfo.cols.info = table.concat(parts, ", ")
    end
{{- end}}
end

local udp_port = DissectorTable.get("udp.port")
udp_port:add({{.UDPPort}}, {{.ProtoName}})
`))
