package wheel

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// DispatchMode selects how a timer's callback is run when it fires.
type DispatchMode string

const (
	// DispatchInline runs the callback on the goroutine that is
	// advancing the wheel. Deterministic; suitable for tests and for
	// Advance-driven (manual) wheels.
	DispatchInline DispatchMode = "inline"

	// DispatchAsync runs each callback on its own goroutine, bounding
	// the wheel's own tick latency against slow callbacks. The default
	// for a production, realtime-driven wheel.
	DispatchAsync DispatchMode = "dispatch"
)

// Config tunes a Wheel's tick resolution, level geometry, and callback
// dispatch. Zero value is not valid; use DefaultConfig as a base.
//
// Tagged for the same dual json/yaml/env loading the rest of the
// ecosystem uses for module configuration.
type Config struct {
	// TickDuration is the wheel's resolution: one Advance tick.
	TickDuration time.Duration `json:"tickDuration" yaml:"tickDuration" toml:"tickDuration" env:"TICK_DURATION" validate:"min=1"`

	// LevelSlots and LevelBits describe each wheel level in order,
	// outermost (finest resolution) first. len(LevelSlots) must equal
	// len(LevelBits), and each slots[i] must equal 1<<bits[i].
	LevelSlots []int `json:"levelSlots" yaml:"levelSlots" toml:"levelSlots" env:"LEVEL_SLOTS"`
	LevelBits  []int `json:"levelBits" yaml:"levelBits" toml:"levelBits" env:"LEVEL_BITS"`

	// DispatchMode is "inline" or "dispatch"; see DispatchMode.
	DispatchMode DispatchMode `json:"dispatchMode" yaml:"dispatchMode" toml:"dispatchMode" validate:"oneof=inline dispatch" env:"DISPATCH_MODE"`

	// SleepCap bounds how long the background advancing loop sleeps
	// between wakeups, so clock drift and newly scheduled short timers
	// are never starved by a long idle sleep. Ignored by Advance-driven
	// (manual) wheels.
	SleepCap time.Duration `json:"sleepCap" yaml:"sleepCap" toml:"sleepCap" env:"SLEEP_CAP"`
}

// DefaultConfig returns the spec §4.5 default geometry: four levels of
// (256,8)(64,6)(64,6)(64,6), 1ms ticks, covering 2^26 ticks (roughly
// 18.6 hours) of range before an entry falls onto the overflow list.
func DefaultConfig() Config {
	return Config{
		TickDuration: time.Millisecond,
		LevelSlots:   []int{256, 64, 64, 64},
		LevelBits:    []int{8, 6, 6, 6},
		DispatchMode: DispatchAsync,
		SleepCap:     100 * time.Millisecond,
	}
}

// Validate checks internal consistency of the geometry.
func (c Config) Validate() error {
	if c.TickDuration <= 0 {
		return ErrNonPositiveDuration
	}
	if len(c.LevelSlots) == 0 || len(c.LevelSlots) != len(c.LevelBits) {
		return fmt.Errorf("wheel: levelSlots and levelBits must be equal-length and non-empty")
	}
	for i, slots := range c.LevelSlots {
		if slots != (1 << uint(c.LevelBits[i])) {
			return fmt.Errorf("wheel: level %d slots %d must equal 1<<bits (%d)", i, slots, 1<<uint(c.LevelBits[i]))
		}
	}
	if c.DispatchMode != DispatchInline && c.DispatchMode != DispatchAsync {
		return fmt.Errorf("wheel: unknown dispatch mode %q", c.DispatchMode)
	}
	return nil
}

// LoadConfig coerces loosely-typed values (as decoded from YAML/TOML/
// env, where a duration may arrive as a string like "1ms" or a bare
// integer of milliseconds) into a Config, the way the rest of the
// ecosystem's config feeders coerce scalars with golobby/cast.
func LoadConfig(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if v, ok := raw["tickDuration"]; ok {
		d, err := castDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("wheel: tickDuration: %w", err)
		}
		cfg.TickDuration = d
	}
	if v, ok := raw["sleepCap"]; ok {
		d, err := castDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("wheel: sleepCap: %w", err)
		}
		cfg.SleepCap = d
	}
	if v, ok := raw["dispatchMode"]; ok {
		converted, err := cast.FromType(v, reflect.TypeOf(""))
		if err != nil {
			return cfg, fmt.Errorf("wheel: dispatchMode: %w", err)
		}
		cfg.DispatchMode = DispatchMode(converted.(string))
	}
	if v, ok := raw["levelSlots"]; ok {
		s, err := castIntSlice(v)
		if err != nil {
			return cfg, fmt.Errorf("wheel: levelSlots: %w", err)
		}
		cfg.LevelSlots = s
	}
	if v, ok := raw["levelBits"]; ok {
		s, err := castIntSlice(v)
		if err != nil {
			return cfg, fmt.Errorf("wheel: levelBits: %w", err)
		}
		cfg.LevelBits = s
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// castIntSlice coerces a decoded list (TOML/YAML arrays surface as
// []interface{} of int64/float64/string elements depending on the
// decoder) into []int, element by element, via golobby/cast.
func castIntSlice(v any) ([]int, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]int, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		converted, err := cast.FromType(rv.Index(i).Interface(), reflect.TypeOf(int(0)))
		if err != nil {
			return nil, err
		}
		out[i] = converted.(int)
	}
	return out, nil
}

// LoadConfigFile reads a Config from a TOML or YAML file, chosen by the
// path's extension, the same split the ecosystem's file-backed feeders
// make between its TOML app config and its YAML tenant overrides.
//
// Both formats decode first into a generic map and then through
// LoadConfig's coercion, rather than straight into a Config struct:
// TOML and YAML only know how to assign a string scalar to a Go string
// field, but tickDuration/sleepCap are written as duration strings
// ("2ms") against a time.Duration (int64-kind) field — a direct decode
// into Config would fail type-checking in both libraries. Routing
// through LoadConfig's castDuration/castIntSlice gives both formats
// the same loose-typing tolerance env-sourced config already needs.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("wheel: reading %s: %w", path, err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return DefaultConfig(), fmt.Errorf("wheel: decoding toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return DefaultConfig(), fmt.Errorf("wheel: decoding yaml %s: %w", path, err)
		}
	default:
		return DefaultConfig(), fmt.Errorf("wheel: %s: unrecognized config extension", path)
	}

	cfg, err := LoadConfig(raw)
	if err != nil {
		return cfg, fmt.Errorf("wheel: %s: %w", path, err)
	}
	return cfg, nil
}

// castDuration accepts a time.Duration, a parseable string ("1ms",
// "250ms"), or a bare integer/float of milliseconds.
func castDuration(v any) (time.Duration, error) {
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	if s, ok := v.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	converted, err := cast.FromType(v, reflect.TypeOf(int(0)))
	if err != nil {
		return 0, err
	}
	return time.Duration(converted.(int)) * time.Millisecond, nil
}
