// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lambdust is an embeddable R7RS Scheme evaluation core: a
// continuation-passing style evaluator with first-class multi-shot
// continuations, tail-call discipline, a hygienic syntax-rules macro
// expander, a pooled memory subsystem with adaptive pressure management,
// a dependency-ordered module loader, and a host bridge for registering
// native procedures and marshalling values across the Scheme/Go boundary.
//
// The package does not include a reader or printer for Scheme source
// text: callers supply a parsed [Node] tree (see ast.go) and lambdust
// evaluates it against an [Environment]. [Value]'s external [WriteString]
// covers the printer half of that boundary.
//
// # Evaluation Model
//
// [Evaluator.Eval] drives runLoop, the trampoline in trampoline.go: given
// an expression, environment, and continuation [Frame], it loops until
// the frame chain reaches [IdentityFrame] or an error propagates. Every
// sub-evaluation is reified as a heap-allocated [Frame] rather than a Go
// stack frame, so self-tail-recursive Scheme procedures run in O(1) Go
// stack frames regardless of recursion depth. [Evaluator.Call] runs a
// nested trampoline for host-initiated re-entrant calls (map, for-each,
// apply, dynamic-wind's thunks, force).
//
// # Continuations
//
// Captured continuations are [Frame] chains, cheap to duplicate and
// multi-shot: invoking a captured continuation more than once replays the
// captured extent each time, since stepApply only ever reads the chain,
// never mutates it. call/cc reifies the current k as a continuation
// [Value] (see dispatch.go's callCCArg handling); dynamic-wind
// (dynamic_wind.go) wraps an extent so its after-thunk runs on every exit
// path, including a jump through a captured continuation.
//
// # Macro Expansion
//
// [MacroExpander] (macro.go) implements syntax-rules pattern matching
// with ellipsis support and hygienic template expansion, renaming
// template-introduced identifiers through a monotonic per-expansion
// counter so nested expansions never collide.
//
// # Memory Subsystem
//
// [ValuePool], [SymbolInterner], and [ContinuationPool] (pool.go) recycle
// the hot-path allocations the evaluator would otherwise churn through.
// [StackMonitor] (stack_monitor.go) tracks frame lifecycle and flags
// runaway recursion; [AdaptiveMemoryManager] (adaptive_memory.go) samples
// both and selects a [Strategy] under a cooldown-gated pressure ladder.
// [NewMetricsCollector] (metrics.go) exposes all of the above to
// Prometheus.
//
// # Modules
//
// [ModuleRegistry] (module.go) loads named module sources in dependency
// order, detecting import cycles, evaluating each module body against a
// fresh child environment, and copying only its declared exports (with
// optional only/rename filtering) into an importer.
//
// # Host Bridge
//
// [Bridge] (bridge.go) registers native Go callables as Scheme-callable
// procedures and tracks externally-owned objects by handle; [Marshaller]
// (marshal.go) performs typed, signature-checked conversion between
// Scheme [Value]s and Go values.
package lambdust
