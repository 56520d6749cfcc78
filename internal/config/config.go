// Package config loads the engine's tunable settings — heap size, GC
// thresholds, scheduler tick rate — from an optional TOML file, the way
// gprobe's own `loadConfig` loads its node configuration: a decoder
// built with a toml.Config whose NormFieldName/FieldToKey are identity
// functions, so TOML keys match Go struct field names exactly, and a
// MissingField hook that rejects unknown keys instead of silently
// ignoring them.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config holds every tunable the engine needs at start-up.
type Config struct {
	Heap      HeapConfig
	GC        GCConfig
	Scheduler SchedulerConfig
}

// HeapConfig sizes the heap.Heap an Engine allocates (spec §4.1).
type HeapConfig struct {
	SizeBytes int
}

// GCConfig holds GC trigger thresholds (spec §4.2). Load decodes them,
// but the engine does not apply them: heap.GC uses its built-in
// thresholds.
type GCConfig struct {
	MaxObjectDiff      uint32
	MaxStringDiff      uint32
	MaxCallsSinceLastGC uint32
}

// SchedulerConfig holds the task scheduler's delay clamps and
// event-polling cadence (spec §4.8). Load decodes them, but the engine
// does not apply them: internal/sched uses its built-in constants.
type SchedulerConfig struct {
	MinTaskDelayMs int64
	MaxTaskDelayMs int64
	PollingRateMs  int64
}

// Default returns the engine's built-in tunables, used when no config
// file is given.
func Default() Config {
	return Config{
		Heap: HeapConfig{SizeBytes: 64 * 1024},
		GC: GCConfig{
			MaxObjectDiff:       10,
			MaxStringDiff:       10,
			MaxCallsSinceLastGC: 20,
		},
		Scheduler: SchedulerConfig{
			MinTaskDelayMs: 1,
			MaxTaskDelayMs: 6000 * 1000,
			PollingRateMs:  50,
		},
	}
}

// Load reads and decodes a TOML file into the defaults, returning the
// merged result. A missing file is an error (the os.Open error is
// returned alongside the defaults) — callers that want Load to be
// optional should check os.IsNotExist(err) themselves, the
// way gprobe's own dumpconfig path treats a blank --config flag as "use
// defaults" rather than calling Load at all.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		var lineErr *toml.LineError
		if errors.As(err, &lineErr) {
			return cfg, fmt.Errorf("%s, %w", path, err)
		}
		return cfg, err
	}
	return cfg, nil
}
