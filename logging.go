// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	hclog "github.com/hashicorp/go-hclog"
)

// Logger is hclog's interface, re-exported under this package's name so
// callers need not import hclog directly just to pass one in.
type Logger = hclog.Logger

// NewLogger builds the root logger for an Evaluator, named "lambdust",
// at the level named by cfg.LogLevel (defaulting to info on an
// unrecognized name). The package creates no named sub-loggers of it.
func NewLogger(cfg *Config) Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "lambdust",
		Level: level,
	})
}
