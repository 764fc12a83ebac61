// Package main is the entry point for the character scene viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/config"
	"github.com/Faultbox/charscene/internal/engine/renderer"
	"github.com/Faultbox/charscene/internal/engine/window"
	"github.com/Faultbox/charscene/internal/game"
	"github.com/Faultbox/charscene/internal/logger"
)

func init() {
	// SDL and OpenGL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Character Scene ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("scene error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("scene closed normally")
}

func run(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      cfg.Graphics.Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return err
	}

	w, h := win.Size()
	rend, err := renderer.New(renderer.Config{Width: w, Height: h})
	if err != nil {
		win.Close()
		return err
	}

	// The app owns win and rend from here, also when New fails.
	app, err := game.New(cfg, win, rend)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}
	defer app.Close()
	rend.SetTextureSource(app.Assets().Load)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}
