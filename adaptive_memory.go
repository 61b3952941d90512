// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"sync"
	"time"
)

// PressureLevel ranks how close the process is to memory exhaustion, as
// estimated from the stack monitor's byte estimate alone (the value
// pool's statistics are not consulted) — lambdust has no direct view of
// the Go runtime heap, so this proxy stands in for it.
type PressureLevel int

const (
	PressureLow PressureLevel = iota
	PressureModerate
	PressureHigh
	PressureCritical
)

func (p PressureLevel) String() string {
	switch p {
	case PressureLow:
		return "low"
	case PressureModerate:
		return "moderate"
	case PressureHigh:
		return "high"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Strategy is the allocation strategy the manager currently recommends,
// gated by cooldown so it does not thrash between neighboring levels.
type Strategy int

const (
	StrategyStandard Strategy = iota
	StrategyAggressive
	StrategyConservative
	StrategyEmergency
)

func (s Strategy) String() string {
	switch s {
	case StrategyStandard:
		return "standard"
	case StrategyAggressive:
		return "aggressive"
	case StrategyConservative:
		return "conservative"
	case StrategyEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// AllocationParameters is the tuning record a Strategy resolves to: how
// eagerly the value pool should recycle, and how large the
// continuation pool's ring should be allowed to grow.
type AllocationParameters struct {
	RecycleAggressiveness float64 // 0..1, higher recycles more eagerly
	ContinuationPoolCap   int
	PreferCompaction      bool
}

func (s Strategy) Parameters() AllocationParameters {
	switch s {
	case StrategyAggressive:
		return AllocationParameters{RecycleAggressiveness: 0.9, ContinuationPoolCap: continuationRecycleCap * 2, PreferCompaction: true}
	case StrategyConservative:
		return AllocationParameters{RecycleAggressiveness: 0.3, ContinuationPoolCap: continuationRecycleCap / 2, PreferCompaction: false}
	case StrategyEmergency:
		return AllocationParameters{RecycleAggressiveness: 1.0, ContinuationPoolCap: continuationRecycleCap / 4, PreferCompaction: true}
	default:
		return AllocationParameters{RecycleAggressiveness: 0.6, ContinuationPoolCap: continuationRecycleCap, PreferCompaction: false}
	}
}

const (
	pressureModerateBytes = 50 << 20
	pressureHighBytes     = 100 << 20
	pressureCriticalBytes = 200 << 20

	pressureHistoryLen = 100
	strategyCooldown    = 1 * time.Second
)

// MemorySnapshot combines pool, continuation-pool, and stack statistics
// into the one ring-buffered telemetry record SPEC_FULL.md §3.6 names.
type MemorySnapshot struct {
	Pool          PoolStats
	Continuations ContinuationPoolStats
	Stack         StackSnapshot
	Pressure      PressureLevel
	Strategy      Strategy
	At            time.Time
}

// AdaptiveMemoryManager watches the value pool and stack monitor and
// escalates/de-escalates a Strategy along the pressure ladder. Strategy
// switches are cooldown-gated: "trending up" requires the last 3
// pressure samples to be non-decreasing (both steps), and a switch
// once made is not reconsidered until strategyCooldown has elapsed,
// preventing oscillation under bursty allocation.
type AdaptiveMemoryManager struct {
	mu            sync.Mutex
	pool          *ValuePool
	continuations *ContinuationPool
	stack         *StackMonitor
	history       []PressureLevel
	strategy      Strategy
	lastSwitch    time.Time
	clock         func() time.Time
}

func newAdaptiveMemoryManager(pool *ValuePool, cp *ContinuationPool, sm *StackMonitor) *AdaptiveMemoryManager {
	return &AdaptiveMemoryManager{pool: pool, continuations: cp, stack: sm, strategy: StrategyStandard, clock: time.Now}
}

func (m *AdaptiveMemoryManager) currentPressure() PressureLevel {
	bytes := m.stack.Snapshot().Bytes
	switch {
	case bytes >= pressureCriticalBytes:
		return PressureCritical
	case bytes >= pressureHighBytes:
		return PressureHigh
	case bytes >= pressureModerateBytes:
		return PressureModerate
	default:
		return PressureLow
	}
}

// Observe samples current pressure, records it in the trend history, and
// re-evaluates Strategy if the cooldown has elapsed and the trend
// supports a change.
func (m *AdaptiveMemoryManager) Observe() (PressureLevel, Strategy) {
	p := m.currentPressure()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) >= pressureHistoryLen {
		m.history = m.history[1:]
	}
	m.history = append(m.history, p)

	now := m.clock()
	if now.Sub(m.lastSwitch) < strategyCooldown {
		return p, m.strategy
	}

	target := strategyFor(p)
	if m.trendingUp() && target < m.strategy {
		// Never de-escalate while pressure is trending up even if the
		// instantaneous sample briefly dips.
		target = m.strategy
	}
	if target != m.strategy {
		m.strategy = target
		m.lastSwitch = now
	}
	return p, m.strategy
}

// trendingUp reports whether both steps between the last 3 samples are
// non-decreasing (as opposed to requiring strict monotonicity over the
// whole window, which noisy sampling would rarely satisfy).
func (m *AdaptiveMemoryManager) trendingUp() bool {
	n := len(m.history)
	if n < 3 {
		return false
	}
	rises := 0
	for i := n - 2; i < n; i++ {
		if m.history[i] >= m.history[i-1] {
			rises++
		}
	}
	return rises >= 2
}

func strategyFor(p PressureLevel) Strategy {
	switch p {
	case PressureCritical:
		return StrategyEmergency
	case PressureHigh:
		return StrategyAggressive
	case PressureModerate:
		return StrategyConservative
	default:
		return StrategyStandard
	}
}

// Snapshot assembles the full telemetry record for the current instant.
func (m *AdaptiveMemoryManager) Snapshot() MemorySnapshot {
	pressure, strategy := m.Observe()
	poolStats := m.pool.Stats()
	poolStats.InternedSymbols = globalInterner.Len()
	return MemorySnapshot{
		Pool:          poolStats,
		Continuations: m.continuations.Stats(),
		Stack:         m.stack.Snapshot(),
		Pressure:      pressure,
		Strategy:      strategy,
		At:            m.clock(),
	}
}
