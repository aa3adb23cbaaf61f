package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"voicewidget/internal/bootstrap"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voice-widget:", err)
		os.Exit(1)
	}
}

func run() error {
	sink := &programSink{}
	services, err := bootstrap.Build(sink)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: services.Config.Server.LogLevel})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer services.Session.Teardown()

	program := tea.NewProgram(newModel(ctx, services.Session))
	sink.attach(program.Send)

	_, err = program.Run()
	return err
}
