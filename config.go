package arrow

import (
	"github.com/JeremyLoy/config"
)

// Config holds the engine settings read from the environment. Every field
// has a working default so an empty environment yields a usable engine.
type Config struct {
	// TrustedMode skips per-call entity liveness checks.
	TrustedMode bool `config:"ARROW_TRUSTED_MODE"`
	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	LogLevel string `config:"ARROW_LOG_LEVEL"`
	// StatsdAddress, when set, enables metric emission to the given agent.
	StatsdAddress string `config:"ARROW_STATSD_ADDRESS"`
}

func defaultConfig() Config {
	return Config{
		TrustedMode: false,
		LogLevel:    "info",
	}
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return defaultConfig(), err
	}
	return cfg, nil
}
