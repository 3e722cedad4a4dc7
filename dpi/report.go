package dpi

import (
	"sort"
	"strings"
)

// StaticSummaryPrefix marks summaries produced by structural-only decodes.
const StaticSummaryPrefix = "Static: "

// Summary renders the one-line report for a decoded unit. With any
// accumulated error the aggregated error form replaces the field summary;
// otherwise the lexicographically sorted name=value pairs are rendered,
// synthesized sub-bitfield entries included. Static-mode results always
// render the summary form under the static prefix.
func (r *DecodeResult) Summary() string {
	if r.mode == ModeStatic {
		return StaticSummaryPrefix + r.pairs()
	}
	if len(r.Errors) > 0 {
		msgs := make([]string, len(r.Errors))
		for i, e := range r.Errors {
			msgs[i] = e.Message
		}
		return "[DPI Error: " + strings.Join(msgs, "; ") + "]"
	}
	return r.pairs()
}

func (r *DecodeResult) pairs() string {
	parts := make([]string, 0, len(r.names))
	for _, name := range r.names {
		parts = append(parts, name+"="+r.values[name].String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
