package luagen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"dpigen/dpi"
	"dpigen/log"
	"dpigen/schema"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Options configures artifact emission. Everything the generator needs
// arrives here; nothing is read from ambient process state.
type Options struct {
	OutputDir string
	UDPPort   int
	Verbose   bool
}

// Generator renders one Lua dissector per endpoint (full validation) plus
// one structural-only dissector built from the first declared endpoint,
// all registered against the configured UDP port.
type Generator struct {
	schema *schema.ProtocolSchema
	opts   Options
	lgr    log.Logger
}

func NewGenerator(s *schema.ProtocolSchema, opts Options) *Generator {
	return &Generator{
		schema: s,
		opts:   opts,
		lgr:    log.WithModule("luagen"),
	}
}

// Generate writes every artifact beneath the configured output directory.
// Endpoints render independently, so emission fans out across goroutines.
func (g *Generator) Generate(ctx context.Context) error {
	endpoints := g.schema.Endpoints()
	if len(endpoints) == 0 {
		return errors.New("schema declares no endpoints")
	}
	if err := os.MkdirAll(g.opts.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "error creating output directory")
	}

	eg, _ := errgroup.WithContext(ctx)
	for _, endpoint := range endpoints {
		endpoint := endpoint
		eg.Go(func() error {
			return g.generate(endpoint, dpi.ModeFull)
		})
	}
	// the static artifact decodes by structure only, built from a
	// representative endpoint: the first one declared
	eg.Go(func() error {
		return g.generate(endpoints[0], dpi.ModeStatic)
	})
	return eg.Wait()
}

func (g *Generator) generate(endpoint string, mode dpi.Mode) error {
	var buf bytes.Buffer
	view, err := g.buildView(endpoint, mode)
	if err != nil {
		return err
	}
	if err := dissectorTemplate.Execute(&buf, view); err != nil {
		return errors.Wrapf(err, "error rendering dissector for endpoint %s", endpoint)
	}
	outPath := filepath.Join(g.opts.OutputDir, view.Filename)
	if err := ioutil.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "error writing dissector file")
	}
	g.lgr.Info("wrote dissector", "path", outPath, "endpoint", endpoint, "static", mode == dpi.ModeStatic)
	return nil
}

// Render writes a single artifact to w without touching the filesystem.
func (g *Generator) Render(w io.Writer, endpoint string, mode dpi.Mode) error {
	view, err := g.buildView(endpoint, mode)
	if err != nil {
		return err
	}
	return dissectorTemplate.Execute(w, view)
}

type dissectorView struct {
	Protocol      string
	Endpoint      string
	ProtoName     string
	Description   string
	Filename      string
	Static        bool
	Verbose       bool
	UDPPort       int
	FieldRegistry string
	Fields        []fieldView
}

type fieldView struct {
	Name           string
	MinSize        int
	MaxSize        int
	Length         string
	Dynamic        bool
	SizeField      string
	Bitfield       bool
	Validate       bool
	BitfieldsCount int
	Decompose      bool
	Extract        string
	HasRange       bool
	MinValue       string
	MaxValue       string
	Decls          []string
}

func (g *Generator) buildView(endpoint string, mode dpi.Mode) (*dissectorView, error) {
	fields, ok := g.schema.Fields(endpoint)
	if !ok {
		return nil, errors.Errorf("unknown endpoint %s", endpoint)
	}

	protocol := sanitize(g.schema.Protocol)
	view := &dissectorView{
		Protocol: protocol,
		Endpoint: endpoint,
		Static:   mode == dpi.ModeStatic,
		Verbose:  g.opts.Verbose,
		UDPPort:  g.opts.UDPPort,
	}
	if view.Static {
		view.ProtoName = protocol
		view.Description = protocol
		view.Filename = protocol + ".lua"
	} else {
		epClean := sanitize(endpoint)
		view.ProtoName = protocol + "_" + epClean
		view.Description = fmt.Sprintf("%s for %s", protocol, endpoint)
		view.Filename = fmt.Sprintf("%s_for_%s.lua", protocol, epClean)
	}

	var registry []string
	for i := range fields {
		fv := buildFieldView(view.ProtoName, &fields[i], mode)
		registry = append(registry, "f_"+fv.Name)
		if fv.Decompose {
			for j := 0; j < fv.BitfieldsCount; j++ {
				registry = append(registry, fmt.Sprintf("f_%s_bf%d", fv.Name, j))
			}
		}
		view.Fields = append(view.Fields, fv)
	}
	view.FieldRegistry = strings.Join(registry, ", ")
	return view, nil
}

func buildFieldView(protoName string, spec *schema.FieldSpec, mode dpi.Mode) fieldView {
	rule := dpi.Resolve(*spec)
	fv := fieldView{
		Name:      spec.Name,
		MinSize:   spec.MinSize,
		MaxSize:   spec.MaxSize,
		Length:    strconv.Itoa(spec.MinSize),
		Dynamic:   spec.IsDynamicArray,
		SizeField: spec.SizeDefiningField,
		Bitfield:  rule.Kind == dpi.RuleBits,
		Validate:  mode == dpi.ModeFull && rule.CheckBits,
		Extract:   extractKind(rule, spec),
		HasRange:  mode == dpi.ModeFull && rule.CheckRange,
		Decompose: spec.Decomposed(),
	}
	if fv.Dynamic {
		fv.Length = "dynamic_length"
	}
	if spec.BitfieldsCount != nil {
		fv.BitfieldsCount = *spec.BitfieldsCount
	}
	if fv.HasRange {
		fv.MinValue = formatBound(*spec.MinValue)
		fv.MaxValue = formatBound(*spec.MaxValue)
	}

	label := capitalize(spec.Name)
	qualified := protoName + "." + spec.Name
	switch {
	case fv.Bitfield:
		fv.Decls = append(fv.Decls, fmt.Sprintf(
			`local f_%s = ProtoField.%s("%s", "%s (Bitfield)")`,
			spec.Name, protoFieldType(rule), qualified, label))
	case rule.Kind == dpi.RuleText:
		fv.Decls = append(fv.Decls, fmt.Sprintf(
			`local f_%s = ProtoField.string("%s", "%s")`,
			spec.Name, qualified, label))
	case rule.Kind == dpi.RuleFloat32 || rule.Kind == dpi.RuleFloat64:
		fv.Decls = append(fv.Decls, fmt.Sprintf(
			`local f_%s = ProtoField.%s("%s", "%s")`,
			spec.Name, protoFieldType(rule), qualified, label))
	default:
		fv.Decls = append(fv.Decls, fmt.Sprintf(
			`local f_%s = ProtoField.%s("%s", "%s", base.DEC)`,
			spec.Name, protoFieldType(rule), qualified, label))
	}

	if fv.Decompose {
		var bfNames []string
		for i := 0; i < fv.BitfieldsCount; i++ {
			bfName := fmt.Sprintf("f_%s_bf%d", spec.Name, i)
			fv.Decls = append(fv.Decls, fmt.Sprintf(
				`local %s = ProtoField.uint8("%s_bf%d", "%s Bitfield %d", base.DEC)`,
				bfName, qualified, i, label, i+1))
			bfNames = append(bfNames, bfName)
		}
		fv.Decls = append(fv.Decls, fmt.Sprintf(
			"local bf_fields_%s = { %s }", spec.Name, strings.Join(bfNames, ", ")))
	}
	return fv
}

func protoFieldType(rule dpi.Rule) string {
	switch rule.Kind {
	case dpi.RuleFloat32:
		return "float"
	case dpi.RuleFloat64:
		return "double"
	case dpi.RuleInt32:
		return "int32"
	case dpi.RuleText:
		return "string"
	default:
		return fmt.Sprintf("uint%d", rule.WidthClass*8)
	}
}

func extractKind(rule dpi.Rule, spec *schema.FieldSpec) string {
	switch rule.Kind {
	case dpi.RuleFloat32:
		return "float"
	case dpi.RuleFloat64:
		return "double"
	case dpi.RuleText:
		return "string"
	default:
		if spec.MinSize == 8 {
			return "uint64"
		}
		return "uint"
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// sanitize rewrites endpoint identifiers and protocol names into valid
// Lua identifiers. Dots in IPv4 endpoints become underscores, as do any
// other non-alphanumeric runes.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
