package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicewidget/internal/bootstrap"
	"voicewidget/internal/config"
	"voicewidget/internal/domain"
	"voicewidget/internal/usecase"
)

const (
	eventStatus     = "voicewidget:status"
	eventVoiceState = "voicewidget:voice-state"
	eventCommand    = "voicewidget:command"
	eventResponse   = "voicewidget:response"
)

var errNotInitialized = errors.New("application is not initialized")

type emitFunc func(ctx context.Context, name string, data ...interface{})

// App is the Wails application root. It hosts one widget session.
type App struct {
	ctx  context.Context
	emit emitFunc

	session *usecase.VoiceSession
	cfg     config.Config
	bootErr error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		slog.Error("startup failed", slog.String("error", err.Error()))
		a.SessionStatusChanged(a.GetStatus())
		return
	}

	a.cfg = services.Config
	a.session = services.Session
	a.SessionStatusChanged(a.session.Status())
}

func (a *App) shutdown(_ context.Context) {
	if a.session != nil {
		a.session.Teardown()
	}
}

// StartListening begins a capture attempt.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.session.Start(a.ctx)
	return a.session.Status(), nil
}

// StopListening ends capture and returns to idle.
func (a *App) StopListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.session.Stop()
	return a.session.Status(), nil
}

// ToggleListening is the microphone button.
func (a *App) ToggleListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.session.Toggle(a.ctx)
	return a.session.Status(), nil
}

// SetProcessing mirrors the host page's busy flag; while set the button is
// disabled.
func (a *App) SetProcessing(busy bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.session.SetHostBusy(busy)
	return nil
}

// GetStatus returns the current widget status.
func (a *App) GetStatus() domain.Status {
	if a.session == nil {
		if a.bootErr != nil {
			return domain.Status{
				State:   domain.SessionStateError,
				Reason:  domain.SessionReasonUnsupported,
				Message: a.bootErr.Error(),
			}
		}
		return domain.Status{
			State:   domain.SessionStateIdle,
			Reason:  domain.SessionReasonMounted,
			Message: usecase.StatusMessage(domain.SessionReasonMounted),
		}
	}
	return a.session.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"commandEndpoint":  a.cfg.Command.BaseURL,
		"pronunciation":    a.cfg.Speech.RulesPath,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.session == nil {
		return errNotInitialized
	}
	return nil
}

// SessionStatusChanged emits widget status to the frontend.
func (a *App) SessionStatusChanged(status domain.Status) {
	a.send(eventStatus, status)
}

// VoiceStateChanged tells the host page that capture began.
func (a *App) VoiceStateChanged(change domain.VoiceStateChange) {
	a.send(eventVoiceState, change)
}

// CommandForwarded hands the accepted transcript to the host page.
func (a *App) CommandForwarded(command string) {
	a.send(eventCommand, map[string]string{"command": command})
}

// CommandResponded carries the command endpoint's reply.
func (a *App) CommandResponded(result domain.CommandResult) {
	a.send(eventResponse, result)
}

func (a *App) send(name string, payload interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, payload)
}
