// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables SPEC_FULL.md's Open Questions resolution
// exposes rather than hard-codes: pool sizing, stack thresholds, and
// cooldown. Every field has a sensible zero-value-safe default applied
// by DefaultConfig; a TOML file only needs to override what it cares
// about. New applies only LogLevel and Macro.MaxExpansionDepth; the
// pools, stack monitor and adaptive memory manager run on their
// compiled-in constants whatever the other sections hold.
type Config struct {
	Pool struct {
		SmallIntMin     int `toml:"small_int_min"`
		SmallIntMax     int `toml:"small_int_max"`
		ValueRecycleCap int `toml:"value_recycle_cap"`
	} `toml:"pool"`

	Continuation struct {
		PrePopulate int `toml:"pre_populate"`
		RecycleCap  int `toml:"recycle_cap"`
	} `toml:"continuation"`

	Memory struct {
		ModerateBytes int64 `toml:"moderate_bytes"`
		HighBytes     int64 `toml:"high_bytes"`
		CriticalBytes int64 `toml:"critical_bytes"`
		HistoryLen    int   `toml:"history_len"`
		CooldownMs    int   `toml:"cooldown_ms"`
	} `toml:"memory"`

	Stack struct {
		RecursionWarnDepth int `toml:"recursion_warn_depth"`
		RecursionHardDepth int `toml:"recursion_hard_depth"`
	} `toml:"stack"`

	Macro struct {
		MaxExpansionDepth int `toml:"max_expansion_depth"`
	} `toml:"macro"`

	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a Config matching the compiled-in constants this
// package otherwise uses directly (smallIntMin, valueRecycleCap, ...).
func DefaultConfig() *Config {
	var c Config
	c.Pool.SmallIntMin = smallIntMin
	c.Pool.SmallIntMax = smallIntMax
	c.Pool.ValueRecycleCap = valueRecycleCap
	c.Continuation.PrePopulate = continuationPrePopulate
	c.Continuation.RecycleCap = continuationRecycleCap
	c.Memory.ModerateBytes = pressureModerateBytes
	c.Memory.HighBytes = pressureHighBytes
	c.Memory.CriticalBytes = pressureCriticalBytes
	c.Memory.HistoryLen = pressureHistoryLen
	c.Memory.CooldownMs = int(strategyCooldown.Milliseconds())
	c.Stack.RecursionWarnDepth = recursionWarnDepth
	c.Stack.RecursionHardDepth = recursionHardDepth
	c.Macro.MaxExpansionDepth = defaultMaxExpansionDepth
	c.LogLevel = "info"
	return &c
}

// LoadConfig reads a TOML file at path, applying its values on top of
// DefaultConfig. A missing file is not an error — the defaults stand.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, NewError(RuntimeError, "reading config").WithCause(err)
	}
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, NewError(SyntaxError, "parsing config").WithCause(err)
	}
	return c, nil
}
