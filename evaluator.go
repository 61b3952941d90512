// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "context"

// New constructs an Evaluator wired with a fresh global environment, the
// shared memory pools, a cancellation token derived from ctx, and the
// core builtin procedure table. cfg may be nil to take DefaultConfig.
// ctx may be nil, giving an Evaluator with no external cancellation
// source (context.Background semantics).
func New(ctx context.Context, cfg *Config) *Evaluator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sm := newStackMonitor()
	ev := &Evaluator{
		global:  NewEnvironment(),
		macros:  newMacroExpander(cfg.Macro.MaxExpansionDepth),
		stack:   sm,
		memory:  newAdaptiveMemoryManager(globalValuePool, globalContinuationPool, sm),
		bridge:  newBridge(),
		cancel:  NewCancelToken(ctx),
		config:  cfg,
		log:     NewLogger(cfg),
		modules: newModuleRegistry(),
	}
	ev.registerCoreBuiltins()
	return ev
}

// GlobalEnv returns the evaluator's top-level environment, for a host
// that wants to Define additional bindings before evaluating a program.
func (ev *Evaluator) GlobalEnv() *Environment { return ev.global }

// Bridge exposes the host bridge so a caller can register procedures and
// external objects without reaching into unexported fields.
func (ev *Evaluator) Bridge() *Bridge { return ev.bridge }

// Modules exposes the module registry so a host can Register module
// sources ahead of Load/Import.
func (ev *Evaluator) Modules() *ModuleRegistry { return ev.modules }

// Memory reports a snapshot of pool/stack/pressure telemetry.
func (ev *Evaluator) Memory() MemorySnapshot { return ev.memory.Snapshot() }

// Log returns the evaluator's root logger ("lambdust"); the evaluator
// creates no named sub-loggers of it.
func (ev *Evaluator) Log() Logger { return ev.log }
