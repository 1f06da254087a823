package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover/internal/telemetry"
	"rover/store"
)

const scenario = `
name: hall
cycles: 20
map:
  - "########"
  - "#......#"
  - "########"
agents:
  - name: runner
    pos: [1, 1]
    order:
      kind: goto
      target: [6, 1]
  - name: sitter
    pos: [3, 1]
    order:
      kind: idle
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))
	return path
}

func TestRunSavesStateForNextRun(t *testing.T) {
	var lines []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		lines = append(lines, format)
	})
	db := filepath.Join(t.TempDir(), "rover.db")
	cfg := Config{
		Logger:   logger,
		Scenario: writeScenario(t),
		Database: db,
	}

	require.NoError(t, Run(context.Background(), cfg))

	s, err := store.Open(db)
	require.NoError(t, err)
	states, tick, err := s.LoadStates(context.Background(), "hall")
	require.NoError(t, err)
	assert.Positive(t, tick)
	assert.Contains(t, states.Handles(), "runner")
	_, err = s.LoadSurfaceCache(context.Background(), "hall")
	assert.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, Run(context.Background(), cfg))
	assert.Contains(t, lines, "restored %d agent states for %s from tick %d")
}

func TestRunRequiresScenario(t *testing.T) {
	assert.Error(t, Run(context.Background(), Config{}))
}

func TestRunRejectsUnknownSeverity(t *testing.T) {
	err := Run(context.Background(), Config{Scenario: writeScenario(t), LogSeverity: "loud"})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ROVER_SCENARIO", "a.yaml")
	t.Setenv("ROVER_TICK_MS", "250")
	cfg := ConfigFromEnv(nil)
	assert.Equal(t, "a.yaml", cfg.Scenario)
	assert.Equal(t, int64(250), cfg.Interval.Milliseconds())

	t.Setenv("ROVER_TICK_MS", "soon")
	assert.Zero(t, ConfigFromEnv(telemetry.LoggerFunc(func(string, ...any) {})).Interval)
}
