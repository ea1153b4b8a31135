// Package placeholder swaps double-brace template expressions for parser-safe tokens and back.
//
// Values files in the automation tree are Jinja templates rendered by Ansible after ciprep has
// run. A YAML parser rejects an unquoted `{{ expr }}` value (it reads as a flow mapping), so
// Protect replaces every expression with an opaque token before parsing and Restore puts the
// original text back after the document has been merged and serialized.
package placeholder

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

const (
	// DefaultTokenPrefix starts every generated token unless the input already contains it.
	DefaultTokenPrefix = "CIPREP_TEMPLATE_"
	// tokenTerminator ends every token so that a digit following the expression cannot extend
	// the token number: CIPREP_TEMPLATE_1_0 never reads as CIPREP_TEMPLATE_10_.
	tokenTerminator = "_"
)

// expressionPattern matches `{{` followed by anything except `}` and then `}}`.
// Nested braces are not supported.
var expressionPattern = regexp.MustCompile(`\{\{[^}]*\}\}`)

// ErrNothingRestored means a non-empty table restored zero tokens: the parse or merge step
// dropped or mangled every protected value.
var ErrNothingRestored = errors.New("no template placeholders were restored")

// Entry records one protected expression.
type Entry struct {
	// Token is the identifier written into the safe text.
	Token string
	// Original is the expression exactly as it appeared in the input.
	Original string
	// Quoted is set when Protect wrapped the token in double quotes because the expression
	// was a whole plain scalar.
	Quoted bool
}

// Table maps generated tokens back to the expressions they replaced.
// A table belongs to exactly one Protect/Restore pair.
type Table struct {
	entries []Entry
}

// Len returns the number of protected expressions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in the order the expressions appeared.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Protect replaces every template expression in text with a unique token.
func Protect(text string) (string, *Table) {
	table := &Table{}
	matches := expressionPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, table
	}

	prefix := uniquePrefix(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for i, m := range matches {
		start, end := m[0], m[1]
		entry := Entry{
			Token:    prefix + strconv.Itoa(i) + tokenTerminator,
			Original: text[start:end],
			Quoted:   isWholePlainScalar(text, start, end),
		}
		table.entries = append(table.entries, entry)

		b.WriteString(text[last:start])
		if entry.Quoted {
			b.WriteString(`"` + entry.Token + `"`)
		} else {
			b.WriteString(entry.Token)
		}
		last = end
	}
	b.WriteString(text[last:])

	log.Debug("Protected template placeholders", "count", len(table.entries), "prefix", prefix)
	return b.String(), table
}

// Restore substitutes every token in text with its original expression.
//
// Tokens are terminated, so no token is a substring of another; they are still processed
// longest first for a stable order. Quoted entries accept the quoted form the serializer keeps as well as a
// bare form when it dropped the quotes. Tokens missing from text are reported as a warning:
// an override can legitimately replace a value that held a placeholder.
func Restore(text string, table *Table) (string, error) {
	if table.Len() == 0 {
		return text, nil
	}

	ordered := table.Entries()
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Token) != len(ordered[j].Token) {
			return len(ordered[i].Token) > len(ordered[j].Token)
		}
		return ordered[i].Token > ordered[j].Token
	})

	restored := 0
	var missing []string
	for _, e := range ordered {
		found := false
		for _, form := range forms(e) {
			if strings.Contains(text, form) {
				text = strings.ReplaceAll(text, form, e.Original)
				found = true
			}
		}
		if found {
			restored++
		} else {
			missing = append(missing, e.Token)
		}
	}

	if restored == 0 {
		return "", fmt.Errorf("%w: expected %d", ErrNothingRestored, table.Len())
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		log.Warn("Some template placeholders were not found after merge",
			"missing", strings.Join(missing, ","), "restored", restored, "expected", table.Len())
	}
	log.Debug("Restored template placeholders", "count", restored)
	return text, nil
}

// forms lists the spellings a token may have in serialized output, most specific first.
func forms(e Entry) []string {
	if !e.Quoted {
		return []string{e.Token}
	}
	return []string{`"` + e.Token + `"`, `'` + e.Token + `'`, e.Token}
}

// uniquePrefix picks a token prefix that does not already occur in text.
func uniquePrefix(text string) string {
	prefix := DefaultTokenPrefix
	for n := 1; strings.Contains(text, prefix); n++ {
		prefix = fmt.Sprintf("CIPREP_TEMPLATE%d_", n)
	}
	return prefix
}

// isWholePlainScalar reports whether text[start:end] is the complete value of a block
// mapping entry, a sequence item or a bare line. Only then can a token safely be quoted;
// inside a quoted scalar or next to other characters it must stay bare.
func isWholePlainScalar(text string, start, end int) bool {
	lineStart := strings.LastIndex(text[:start], "\n") + 1
	before := text[lineStart:start]

	lineEnd := strings.IndexByte(text[end:], '\n')
	var after string
	if lineEnd < 0 {
		after = text[end:]
	} else {
		after = text[end : end+lineEnd]
	}

	return opensScalar(before) && closesScalar(after)
}

func opensScalar(before string) bool {
	if strings.TrimSpace(before) == "" {
		return true
	}
	trimmed := strings.TrimRight(before, " \t")
	if len(trimmed) == len(before) {
		// Indicators must be followed by whitespace.
		return false
	}
	if strings.HasSuffix(trimmed, ":") {
		return true
	}
	return strings.TrimSpace(trimmed) == "-" || strings.HasSuffix(trimmed, " -")
}

func closesScalar(after string) bool {
	rest := strings.TrimLeft(after, " \t\r")
	if rest == "" {
		return true
	}
	return strings.HasPrefix(rest, "#") && len(rest) < len(after)
}
