package usecase

import (
	"context"
	"errors"
	"log/slog"

	"voicewidget/internal/domain"
	"voicewidget/internal/ports"
)

var errNoDispatcher = errors.New("no command dispatcher configured")

// commandRunner forwards a matched command and speaks the reply when it can.
type commandRunner struct {
	dispatcher ports.CommandDispatcher
	speaker    ports.Speaker
}

func newCommandRunner(dispatcher ports.CommandDispatcher, speaker ports.Speaker) commandRunner {
	return commandRunner{dispatcher: dispatcher, speaker: speaker}
}

func (r commandRunner) Dispatch(ctx context.Context, command string) (domain.CommandResult, error) {
	if r.dispatcher == nil {
		return domain.CommandResult{}, errNoDispatcher
	}
	return r.dispatcher.Dispatch(ctx, command)
}

// Speak reports whether the text was handed to a speaker. A missing speaker is
// not an error.
func (r commandRunner) Speak(ctx context.Context, text string) bool {
	if r.speaker == nil || text == "" || !r.speaker.Available() {
		return false
	}
	if err := r.speaker.Speak(ctx, text); err != nil {
		logger.Warn("speech output failed", slog.String("error", err.Error()))
		return false
	}
	return true
}
