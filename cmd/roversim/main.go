package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rover/internal/app"
	"rover/internal/sim"
	"rover/internal/telemetry"
)

func main() {
	cfg := app.ConfigFromEnv(telemetry.WrapLogger(log.Default()))
	flag.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "scenario YAML file")
	flag.StringVar(&cfg.EngineConfig, "config", cfg.EngineConfig, "engine config YAML file")
	flag.StringVar(&cfg.Database, "db", cfg.Database, "SQLite file for saved movement state")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for /metrics and /ws")
	schemaOut := flag.String("schema", "", "write the scenario JSON schema to this path and exit")
	flag.Parse()

	if *schemaOut != "" {
		if err := sim.WriteScenarioSchema(*schemaOut); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
