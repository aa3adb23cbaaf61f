package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// LiteralParser handles "from => to" rules. Matching ignores case and respects
// word boundaries at the ends of from.
type LiteralParser struct{}

func (LiteralParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (LiteralParser) Parse(line string) (Rule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid literal rule")
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if isWordChar(from[0]) {
		pattern = `\b` + pattern
	}
	if isWordChar(from[len(from)-1]) {
		pattern += `\b`
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}
	return literalRule{re: re, replacement: to}, nil
}

type literalRule struct {
	re          *regexp.Regexp
	replacement string
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

// SubstitutionParser handles sed-style s/pattern/replacement/flags rules.
// Patterns are case-insensitive; supported flags are g, i, m and s.
type SubstitutionParser struct{}

func (SubstitutionParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordChar(line[1]) && !isBlank(line[1])
}

func (SubstitutionParser) Parse(line string) (Rule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid substitution rule")
	}
	delim := line[1]
	if isWordChar(delim) || isBlank(delim) {
		return nil, errors.New("substitution delimiter must be punctuation")
	}

	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid replacement: %w", err)
	}

	inline := "i"
	global := false
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'g':
			global = true
		case 'i':
		case 'm', 's':
			if !strings.ContainsRune(inline, flag) {
				inline += string(flag)
			}
		case ' ':
		default:
			return nil, fmt.Errorf("unsupported flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + inline + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return substitutionRule{re: re, replacement: replacement, global: global}, nil
}

type substitutionRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r substitutionRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	match := r.re.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

// readDelimited reads up to the next unescaped delim. Escapes are kept so the
// regexp engine sees them.
func readDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var b strings.Builder
	escaped := false
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
