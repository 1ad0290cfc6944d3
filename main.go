package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/server"
	"github.com/pthm-cable/flock/sim"
	"github.com/pthm-cable/flock/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	headless := flag.Bool("headless", false, "Run without the network surface")
	ticks := flag.Int("ticks", 0, "Headless: stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (overrides config)")
	seed := flag.Int64("seed", 0, "RNG seed (overrides config; 0 = keep config value)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}

	eng, err := sim.NewEngine(cfg)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	out, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to open output directory", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	if *headless {
		runHeadless(eng, cfg, out, *ticks)
		return
	}
	serve(eng, cfg, out)
}

// runHeadless advances the simulation as fast as possible, without a
// network surface. Telemetry flushes on the usual cadence.
func runHeadless(eng *sim.Engine, cfg *config.Config, out *telemetry.OutputManager, ticks int) {
	runner := sim.NewRunner(eng, cfg, out, nil)

	slog.Info("starting headless run",
		"population", eng.Population(),
		"capacity", eng.Capacity(),
		"ticks", ticks,
	)

	const batch = 1024
	done := 0
	for ticks <= 0 || done < ticks {
		n := batch
		if ticks > 0 && ticks-done < n {
			n = ticks - done
		}
		runner.RunHeadless(n)
		done += n
	}

	slog.Info("headless run complete", "tick", eng.TickCount())
}

// serve runs the tick loop and the HTTP surface until interrupted.
func serve(eng *sim.Engine, cfg *config.Config, out *telemetry.OutputManager) {
	hub := server.NewHub()
	runner := sim.NewRunner(eng, cfg, out, hub.Broadcast)
	srv := server.New(eng, runner, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runner.Run(ctx)

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shCtx)
	}()

	slog.Info("simulation server listening",
		"addr", cfg.Server.Addr,
		"population", eng.Population(),
		"capacity", eng.Capacity(),
		"tick_rate", cfg.Sim.TickRate,
	)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete", "tick", eng.TickCount())
}
