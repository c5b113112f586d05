// Command stimconsole runs the stimulus client in a terminal. Frames are
// driven by a fixed-rate timer instead of the display's vsync, so it is
// meant for operating and debugging a controller, not for presenting
// stimuli to a subject.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go.aimuz.me/stimui/config"
	"go.aimuz.me/stimui/console"
	"go.aimuz.me/stimui/display"
	"go.aimuz.me/stimui/internal/app"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "config file (default: user config dir)")
	controllerURL := flag.String("controller", "", "override the controller base URL")
	fps := flag.Float64("fps", 60, "frame rate of the terminal frame driver")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "stimconsole.log"), "log file")
	flag.Parse()

	if err := run(*configPath, *controllerURL, *fps, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, controllerURL string, fps float64, logPath string) error {
	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := tea.LogToFile(logPath, "stimconsole")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if controllerURL != "" {
		cfg.ControllerURL = controllerURL
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("starting console", "version", version, "controller", cfg.ControllerURL, "fps", fps)

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	svc, err := app.NewWithOptions(version, app.Options{
		Config: cfg,
		Emit:   console.Emitter(send),
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	program = tea.NewProgram(console.New(svc), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown()

	go display.RunInterval(ctx, fps, display.SystemClock, func(_ time.Time) { svc.DisplayFrame() })

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
