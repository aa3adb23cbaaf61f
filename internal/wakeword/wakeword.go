package wakeword

import (
	"sort"
	"strings"
)

// DefaultPhrases are the trigger phrases the widget listens for.
var DefaultPhrases = []string{"jarvis", "hey jarvis", "hello jarvis"}

// Set is an ordered set of lowercase trigger phrases.
type Set struct {
	phrases []string
}

// New normalizes phrases to lowercase, dropping blanks and duplicates.
func New(phrases ...string) Set {
	seen := make(map[string]struct{}, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		normalized := strings.ToLower(strings.TrimSpace(phrase))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return Set{phrases: out}
}

// Default returns the set built from DefaultPhrases.
func Default() Set {
	return New(DefaultPhrases...)
}

// Phrases returns a copy of the phrases in order.
func (s Set) Phrases() []string {
	return append([]string(nil), s.phrases...)
}

// Match reports the first phrase contained anywhere in transcript, ignoring case.
func (s Set) Match(transcript string) (string, bool) {
	lower := strings.ToLower(transcript)
	for _, phrase := range s.phrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// Contains reports whether transcript holds any phrase of the set.
func (s Set) Contains(transcript string) bool {
	_, ok := s.Match(transcript)
	return ok
}

// StripLeading removes a wake phrase at the start of text, longest phrase first,
// along with the punctuation and spacing that follows it.
func (s Set) StripLeading(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	byLength := s.Phrases()
	sort.SliceStable(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	for _, phrase := range byLength {
		if !strings.HasPrefix(lower, phrase) {
			continue
		}
		rest := trimmed[len(phrase):]
		if rest != "" && isWordByte(rest[0]) {
			continue
		}
		return strings.TrimLeft(rest, " \t,.!?;:-")
	}
	return trimmed
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '\''
}
