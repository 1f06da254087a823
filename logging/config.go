package logging

import (
	"slices"
	"time"
)

type Config struct {
	EnabledSinks     []string       `yaml:"sinks"`
	BufferSize       int            `yaml:"buffer_size"`
	MinimumSeverity  Severity       `yaml:"-"`
	Severity         string         `yaml:"severity"`
	Fields           map[string]any `yaml:"fields"`
	JSON             JSONConfig     `yaml:"json"`
	DropWarnInterval time.Duration  `yaml:"drop_warn_interval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"file"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		Severity:         "info",
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// Resolve parses the textual severity into MinimumSeverity.
func (c Config) Resolve() (Config, error) {
	sev, err := ParseSeverity(c.Severity)
	if err != nil {
		return c, err
	}
	c.MinimumSeverity = sev
	return c, nil
}
