package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxFrames := flag.Uint64("max-frames", 0, "Stop after N host frames (0 = unlimited)")
	fieldDir := flag.String("field-dir", "", "Directory of wind images (overrides field.dir)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *fieldDir != "" {
		cfg.Field.Dir = *fieldDir
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.Options{
		Config:    cfg,
		Headless:  *headless,
		OutputDir: *outputDir,
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g, err := game.NewGameWithOptions(opts)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"layers", len(cfg.Layers),
			"clock", cfg.Clock.Policy,
			"max_frames", *maxFrames,
		)

		for {
			if err := g.UpdateHeadless(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Error("update failed", "error", err)
				}
				return
			}
			if *maxFrames > 0 && g.Frames() >= *maxFrames {
				slog.Info("max frames reached", "frame", g.Frames())
				return
			}
			if g.Frozen() {
				slog.Info("simulated time limit reached", "frame", g.Frames())
				return
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Wind Globe")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		if err := g.Update(ctx, rl.GetFrameTime()); err != nil {
			return
		}
		g.Draw()

		if *maxFrames > 0 && g.Frames() >= *maxFrames {
			break
		}
	}
}
