package recovery

import (
	"regexp"
	"strings"
)

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyPattern       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// RepairText applies a bounded, best-effort pass over malformed JSON text:
// it strips trailing commas before a closing brace/bracket, quotes bare
// identifier-like keys, and appends closers for unmatched opening brackets
// and braces. It is a heuristic for common truncation damage, not a
// general-purpose fixer: the caller re-parses the result exactly once and
// abandons repair if that parse still fails.
func RepairText(text string) string {
	out := bareKeyPattern.ReplaceAllString(text, `$1"$2":`)

	// Brackets close before braces: truncation loses the innermost
	// closers first, and arrays nest inside the cart object.
	if missing := strings.Count(out, "[") - strings.Count(out, "]"); missing > 0 {
		out += strings.Repeat("]", missing)
	}
	if missing := strings.Count(out, "{") - strings.Count(out, "}"); missing > 0 {
		out += strings.Repeat("}", missing)
	}

	// Commas stranded by truncation only sit before a closer once the
	// closers exist, so this strip runs last.
	return trailingCommaPattern.ReplaceAllString(out, "$1")
}
