// Package filter implements the content filter applied to chat messages
// before they are stored.
package filter

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPatterns is used when no word list is configured.
var DefaultPatterns = []string{
	"fuck(er|ing)?",
	"shit",
	"bitch",
	"cunt",
	"arschloch",
	"hurensohn",
	"wichser",
	"fotze",
}

// Filter reports whether a text contains any disallowed pattern. Patterns are
// case-insensitive regular expressions anchored at word boundaries, where a
// word is any run of Unicode letters, digits and underscores. A Filter is
// immutable and safe for concurrent use.
type Filter struct {
	patterns []string
	re       *regexp.Regexp
}

func New(patterns []string) (*Filter, error) {
	var cleaned []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return &Filter{}, nil
	}

	groups := make([]string, len(cleaned))
	for i, p := range cleaned {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", p, err)
		}
		groups[i] = "(?:" + p + ")"
	}
	// word boundaries over Unicode letters; \b is ASCII only
	re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(groups, "|") + `)(?:$|[^\p{L}\p{N}_])`)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return &Filter{patterns: cleaned, re: re}, nil
}

// Load builds a filter from the word list file at path (any format viper
// reads, with a top-level "patterns" list) plus the inline patterns. If
// neither yields a pattern, DefaultPatterns is used.
func Load(path string, inline []string) (*Filter, error) {
	patterns := append([]string(nil), inline...)

	if path != "" {
		fromFile, err := readWordList(path)
		switch {
		case os.IsNotExist(err):
			slog.Warn("filter word list not found, using built-in list", "path", path)
		case err != nil:
			return nil, err
		default:
			patterns = append(patterns, fromFile...)
		}
	}

	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return New(patterns)
}

func readWordList(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read filter word list %s: %w", path, err)
	}
	return v.GetStringSlice("patterns"), nil
}

// ContainsDisallowed reports whether text matches any pattern.
func (f *Filter) ContainsDisallowed(text string) bool {
	if f == nil || f.re == nil {
		return false
	}
	return f.re.MatchString(text)
}

func (f *Filter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
