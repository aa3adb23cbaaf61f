// Package rules rewrites response text before it is spoken, so that words the
// voice engine mispronounces can be respelled.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
)

const DefaultIterationLimit = 30

// Rule rewrites text and reports whether anything changed.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// Parser turns one line of a rules file into a Rule.
type Parser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Set is an ordered list of rules applied until the text stops changing.
type Set struct {
	rules          []Rule
	iterationLimit int
}

// Load reads a rules file from fsys. A blank path or a missing file yields an
// empty set.
func Load(fsys afero.Fs, path string, iterationLimit int) (*Set, error) {
	return LoadWithParsers(fsys, path, iterationLimit, DefaultParsers())
}

func LoadWithParsers(fsys afero.Fs, path string, iterationLimit int, parsers []Parser) (*Set, error) {
	if iterationLimit <= 0 {
		iterationLimit = DefaultIterationLimit
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return &Set{iterationLimit: iterationLimit}, nil
	}

	contents, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Set{iterationLimit: iterationLimit}, nil
		}
		return nil, fmt.Errorf("read pronunciation rules %q: %w", path, err)
	}

	parsed, err := Parse(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("parse pronunciation rules %q: %w", path, err)
	}
	return &Set{rules: parsed, iterationLimit: iterationLimit}, nil
}

// Len reports how many rules were loaded.
func (s *Set) Len() int {
	return len(s.rules)
}

// Apply runs every rule in order, repeating the pass until nothing changes or
// the iteration limit is reached.
func (s *Set) Apply(text string) (string, error) {
	if s == nil || len(s.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < s.iterationLimit; pass++ {
		changed := false
		for _, rule := range s.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

// Parse compiles rules file contents. Blank lines and # comments are skipped.
func Parse(contents string, parsers []Parser) ([]Rule, error) {
	lines := strings.Split(contents, "\n")
	out := make([]Rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func parseLine(line string, parsers []Parser) (Rule, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}

// DefaultParsers understands sed-style substitutions and "from => to" literals.
func DefaultParsers() []Parser {
	return []Parser{SubstitutionParser{}, LiteralParser{}}
}
