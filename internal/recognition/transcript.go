package recognition

import (
	"strings"

	"voicewidget/internal/domain"
)

// utterance collects final segments of one spoken command. The latest partial
// is kept as a fallback for providers that never finalize before closing.
type utterance struct {
	segments      []string
	latestPartial string
	complete      bool
}

func (u *utterance) Add(event domain.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if event.Kind == domain.TranscriptKindFinal && event.IsSpeechFinal {
		u.complete = true
	}
	if text == "" {
		return
	}
	if event.Kind == domain.TranscriptKindFinal {
		u.segments = append(u.segments, text)
		u.latestPartial = ""
		return
	}
	u.latestPartial = text
}

// Complete reports whether the provider marked the end of speech and some text
// was captured.
func (u *utterance) Complete() bool {
	return u.complete && u.Text() != ""
}

func (u *utterance) Text() string {
	joined := strings.Join(u.segments, " ")
	if u.latestPartial == "" {
		return joined
	}
	if joined == "" {
		return u.latestPartial
	}
	return joined + " " + u.latestPartial
}
