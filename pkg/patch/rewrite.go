package patch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrPlaceholderAbsent means a literal the tool relies on is missing, so the upstream file
	// format has changed.
	ErrPlaceholderAbsent = errors.New("expected placeholder not found")
	// ErrInvalidRule is returned for a rewrite rule whose pattern does not compile.
	ErrInvalidRule = errors.New("invalid rewrite rule")
)

// Rule is a regular-expression rewrite applied to one file of the tree.
type Rule struct {
	// File is relative to the tree root.
	File string `mapstructure:"file"`
	// Pattern is an RE2 expression.
	Pattern string `mapstructure:"pattern"`
	// Replacement may reference groups as ${1}.
	Replacement string `mapstructure:"replacement"`
}

// LineFilter drops lines of File that contain every entry of Contains.
type LineFilter struct {
	File     string   `mapstructure:"file"`
	Contains []string `mapstructure:"contains"`
}

// ReplaceRequired replaces every occurrence of old and fails when there is none.
func ReplaceRequired(text, old, replacement string) (string, error) {
	if old == "" || !strings.Contains(text, old) {
		return "", fmt.Errorf("%w: %q", ErrPlaceholderAbsent, old)
	}
	return strings.ReplaceAll(text, old, replacement), nil
}

// Rewrite applies rule to text and returns the result with the number of matches.
func Rewrite(text string, rule Rule) (string, int, error) {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return "", 0, fmt.Errorf("%w %q: %w", ErrInvalidRule, rule.Pattern, err)
	}
	matches := len(re.FindAllStringIndex(text, -1))
	if matches == 0 {
		return text, 0, nil
	}
	return re.ReplaceAllString(text, rule.Replacement), matches, nil
}

// RemoveLines drops every line containing all of contains and returns the number removed.
// An empty contains list removes nothing.
func RemoveLines(text string, contains []string) (string, int) {
	if len(contains) == 0 {
		return text, 0
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	removed := 0
	for _, line := range lines {
		if containsAll(line, contains) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), removed
}

func containsAll(line string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(line, p) {
			return false
		}
	}
	return true
}
