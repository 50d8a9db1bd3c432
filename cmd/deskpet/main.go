package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/deskpet/internal/api"
	"github.com/nidhogg/deskpet/internal/automation"
	"github.com/nidhogg/deskpet/internal/config"
	"github.com/nidhogg/deskpet/internal/gateway"
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/orchestrator"
	"github.com/nidhogg/deskpet/internal/sprite"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/sysinfo"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/deskpet.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	logger.Info("Starting deskpet...", zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := world.NewScheduler(time.Now(), cfg.Seed, logger.Named("timeline"))

	// Event fan-out: surfaces emit on the timeline, sinks publish off it.
	gw := gateway.NewGateway(0, logger.Named("gateway"))
	gw.Register(gateway.NewLogSink(logger.Named("events")))

	var engine *orchestrator.Engine
	hub := gateway.NewHub(func(ctx context.Context) []surface.Event {
		var scene []surface.Event
		if err := sched.Do(ctx, func() { scene = engine.Scene() }); err != nil {
			return nil
		}
		return scene
	}, logger.Named("viewers"))
	gw.Register(hub)

	var stream *gateway.StreamSink
	if cfg.Redis.URL != "" {
		s, err := gateway.NewStreamSink(ctx, cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.MaxLen, logger.Named("stream"))
		if err != nil {
			logger.Warn("Redis unavailable, running without event stream", zap.Error(err))
		} else {
			stream = s
			gw.Register(stream)
			logger.Info("Event stream enabled", zap.String("stream", cfg.Redis.Stream), zap.String("run", stream.RunID()))
		}
	}

	catalog, err := messages.Load(cfg.Messages.Path)
	if err != nil {
		logger.Fatal("failed to load messages", zap.String("path", cfg.Messages.Path), zap.Error(err))
	}

	engineCfg := cfg.Engine()
	sprites := sprite.LoadDir(cfg.Sprites.Dir, engineCfg.PrimarySize, logger.Named("sprites"))
	sampler := sysinfo.NewSampler(nil, cfg.Timings.SystemSample.Std(), logger.Named("sysinfo"))

	svc := automation.Detect(cfg.Automation.Backend, logger.Named("automation"))
	worker := automation.NewWorker(ctx, svc, sched.Post, logger.Named("automation"))
	logger.Info("Automation backend selected", zap.String("backend", svc.Name()))

	engine = orchestrator.New(engineCfg, orchestrator.Deps{
		Sched:      sched,
		Surface:    surface.NewEvents(gw, sched.Now),
		Sprites:    sprites,
		Catalog:    catalog,
		Automation: worker,
		Stats:      sampler,
		Logger:     logger.Named("engine"),
	})
	sched.Post(engine.Start)

	opts := []api.Option{api.WithViewers(hub), api.WithSinks(gw.Sinks)}
	if stream != nil {
		opts = append(opts, api.WithHistory(stream))
	}
	handler := api.NewHandler(sched, engine, logger.Named("api"), opts...)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	// The timeline outlives the signal context so Stop can still run on it.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(runCtx) })
	g.Go(func() error { return gw.Run(runCtx) })
	g.Go(func() error { return sampler.Run(gctx) })
	g.Go(func() error {
		logger.Info("deskpet listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down deskpet...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err := sched.Do(shutdownCtx, engine.Stop); err != nil {
			logger.Warn("engine did not stop cleanly", zap.Error(err))
		}
		cancelRun()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("deskpet stopped with error", zap.Error(err))
	}
	worker.Wait()
	if err := gw.Close(); err != nil {
		logger.Warn("closing sinks", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
