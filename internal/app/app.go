package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rover"
	"rover/internal/sim"
	"rover/internal/telemetry"
	"rover/logging"
	loggingSinks "rover/logging/sinks"
	"rover/metrics"
	"rover/store"
	"rover/visual"
)

// Config selects what the simulator runs and where it reports.
type Config struct {
	Logger telemetry.Logger

	Scenario     string
	EngineConfig string
	Database     string
	World        string
	Addr         string
	NATSURL      string
	NATSSubject  string
	Interval     time.Duration
	LogSeverity  string
	LogJSONPath  string
}

// ConfigFromEnv reads ROVER_* variables. Invalid values are reported through
// logger and left at their defaults.
func ConfigFromEnv(logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	cfg := Config{
		Logger:       logger,
		Scenario:     os.Getenv("ROVER_SCENARIO"),
		EngineConfig: os.Getenv("ROVER_CONFIG"),
		Database:     os.Getenv("ROVER_DB"),
		World:        os.Getenv("ROVER_WORLD"),
		Addr:         os.Getenv("ROVER_ADDR"),
		NATSURL:      os.Getenv("ROVER_NATS_URL"),
		NATSSubject:  os.Getenv("ROVER_NATS_SUBJECT"),
		LogSeverity:  os.Getenv("ROVER_LOG_SEVERITY"),
		LogJSONPath:  os.Getenv("ROVER_LOG_JSON"),
	}
	if raw := os.Getenv("ROVER_TICK_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Interval = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid ROVER_TICK_MS=%q", raw)
		}
	}
	return cfg
}

// Run loads the scenario, restores saved movement state, runs the scenario
// to completion and saves the state back.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	if cfg.Scenario == "" {
		return errors.New("no scenario given")
	}

	scenario, err := sim.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}
	if cfg.EngineConfig != "" {
		engineCfg, err := rover.LoadConfig(cfg.EngineConfig)
		if err != nil {
			return err
		}
		scenario.Engine = engineCfg
	}
	world := cfg.World
	if world == "" {
		world = scenario.Name
	}

	router, closeLogs, err := newRouter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLogs(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	counters := &telemetry.Counters{}

	runner, err := sim.NewRunner(scenario, rover.Deps{
		Publisher: logging.WithFields(router, map[string]any{"world": world}),
		Metrics:   telemetry.Fanout(metrics.NewPrometheus(registry), counters),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	runner.Interval = cfg.Interval

	var db *store.Store
	if cfg.Database != "" {
		db, err = store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := restore(ctx, db, world, runner, logger); err != nil {
			return err
		}
	}

	recorder := visual.NewRecorder()
	runner.Visualizer = recorder

	stream := visual.NewStream(log.Default())
	defer stream.Close()
	publishers := []visual.Publisher{stream}
	if cfg.NATSURL != "" {
		bus, err := visual.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer bus.Close()
		publishers = append(publishers, bus)
	}

	runner.OnCycle = func(tick uint64, results *rover.Results[string]) {
		if err := visual.Broadcast(recorder.Flush(tick), publishers...); err != nil {
			logger.Printf("failed to publish frame %d: %v", tick, err)
		}
	}

	var srv *http.Server
	if cfg.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		mux.Handle("/ws", stream)
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: cfg.Addr, Handler: mux}
		go func() {
			logger.Printf("server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Printf("failed to shut down server: %v", err)
			}
		}()
	}

	last, runErr := runner.Run(ctx)
	if last != nil {
		logger.Printf("scenario %s finished at tick %d: %d arrived, %d moving, %d stuck, %d failed",
			scenario.Name, runner.World.Tick(),
			last.Count(rover.StatusArrived), last.Count(rover.StatusMoving),
			last.Count(rover.StatusStuck), last.Count(rover.StatusFailed))
	}
	snapshot := counters.Snapshot()
	logger.Printf("cycles=%d swaps=%d shoves=%d paths=%d",
		snapshot["cycles"], snapshot["swaps"], snapshot["shoves"], snapshot["path_generated"])

	if db != nil {
		// Saved even when ctx is done so an interrupted run can resume.
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.SaveStates(saveCtx, world, runner.World.Tick(), runner.States); err != nil {
			return errors.Join(runErr, err)
		}
		if err := db.SaveSurfaceCache(saveCtx, world, runner.Cache); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func restore(ctx context.Context, db *store.Store, world string, runner *sim.Runner, logger telemetry.Logger) error {
	states, tick, err := db.LoadStates(ctx, world)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		runner.States = states
		logger.Printf("restored %d agent states for %s from tick %d", states.Len(), world, tick)
	}

	cache, err := db.LoadSurfaceCache(ctx, world)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		runner.Cache = cache
	}
	return nil
}

func newRouter(cfg Config) (*logging.Router, func(context.Context) error, error) {
	logConfig := logging.DefaultConfig()
	if cfg.LogSeverity != "" {
		logConfig.Severity = cfg.LogSeverity
	}
	logConfig, err := logConfig.Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log severity: %w", err)
	}

	sinks := []logging.NamedSink{{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)}}
	var file *os.File
	if cfg.LogJSONPath != "" {
		file, err = os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json log: %w", err)
		}
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
		logConfig.JSON.FilePath = cfg.LogJSONPath
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, sinks)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	closeFn := func(ctx context.Context) error {
		err := router.Close(ctx)
		if file != nil {
			err = errors.Join(err, file.Close())
		}
		return err
	}
	return router, closeFn, nil
}
