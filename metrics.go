// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "github.com/prometheus/client_golang/prometheus"

// metricsCollector is a prometheus.Collector that reads an Evaluator's
// pool/stack/pressure telemetry on every scrape rather than maintaining
// its own counters — the same pull-based shape as the pressure sampling
// AdaptiveMemoryManager already does internally, just surfaced to
// Prometheus instead of to the strategy ladder.
type metricsCollector struct {
	ev *Evaluator

	smallIntHits    *prometheus.Desc
	smallIntMisses  *prometheus.Desc
	recycleHits     *prometheus.Desc
	recycleMisses   *prometheus.Desc
	recycleSize     *prometheus.Desc
	internedSymbols *prometheus.Desc

	contPoolSize *prometheus.Desc
	contHits     *prometheus.Desc
	contMisses   *prometheus.Desc

	stackDepth    *prometheus.Desc
	stackMaxDepth *prometheus.Desc
	stackBytes    *prometheus.Desc
	stackMaxBytes *prometheus.Desc
	stackPushes   *prometheus.Desc

	pressure *prometheus.Desc
	strategy *prometheus.Desc
}

// NewMetricsCollector wraps ev so its Memory() snapshot can be registered
// with a prometheus.Registry. Callers own the Registerer:
//
//	reg.MustRegister(lambdust.NewMetricsCollector(ev))
func NewMetricsCollector(ev *Evaluator) prometheus.Collector {
	const ns = "lambdust"
	return &metricsCollector{
		ev: ev,

		smallIntHits:    prometheus.NewDesc(ns+"_pool_small_int_hits_total", "Small-integer cache hits.", nil, nil),
		smallIntMisses:  prometheus.NewDesc(ns+"_pool_small_int_misses_total", "Small-integer cache misses.", nil, nil),
		recycleHits:     prometheus.NewDesc(ns+"_pool_recycle_hits_total", "Value recycle-pool hits.", nil, nil),
		recycleMisses:   prometheus.NewDesc(ns+"_pool_recycle_misses_total", "Value recycle-pool misses.", nil, nil),
		recycleSize:     prometheus.NewDesc(ns+"_pool_recycle_size", "Values currently held in the recycle pool.", nil, nil),
		internedSymbols: prometheus.NewDesc(ns+"_pool_interned_symbols", "Distinct symbols interned process-wide.", nil, nil),

		contPoolSize: prometheus.NewDesc(ns+"_continuation_pool_size", "Identity continuation frames held for reuse.", nil, nil),
		contHits:     prometheus.NewDesc(ns+"_continuation_pool_hits_total", "Continuation pool hits.", nil, nil),
		contMisses:   prometheus.NewDesc(ns+"_continuation_pool_misses_total", "Continuation pool misses.", nil, nil),

		stackDepth:    prometheus.NewDesc(ns+"_stack_depth", "Current logical frame depth.", nil, nil),
		stackMaxDepth: prometheus.NewDesc(ns+"_stack_max_depth", "Highest logical frame depth observed.", nil, nil),
		stackBytes:    prometheus.NewDesc(ns+"_stack_bytes", "Estimated current frame-chain byte footprint.", nil, nil),
		stackMaxBytes: prometheus.NewDesc(ns+"_stack_max_bytes", "Highest estimated frame-chain byte footprint observed.", nil, nil),
		stackPushes:   prometheus.NewDesc(ns+"_stack_pushes_total", "Frames pushed over the evaluator's lifetime.", nil, nil),

		pressure: prometheus.NewDesc(ns+"_memory_pressure", "Current pressure level (0=low .. 3=critical).", nil, nil),
		strategy: prometheus.NewDesc(ns+"_memory_strategy", "Current adaptive strategy (0=standard, 1=aggressive, 2=conservative, 3=emergency).", nil, nil),
	}
}

func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.smallIntHits
	ch <- c.smallIntMisses
	ch <- c.recycleHits
	ch <- c.recycleMisses
	ch <- c.recycleSize
	ch <- c.internedSymbols
	ch <- c.contPoolSize
	ch <- c.contHits
	ch <- c.contMisses
	ch <- c.stackDepth
	ch <- c.stackMaxDepth
	ch <- c.stackBytes
	ch <- c.stackMaxBytes
	ch <- c.stackPushes
	ch <- c.pressure
	ch <- c.strategy
}

func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.ev.Memory()

	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.smallIntHits, float64(snap.Pool.SmallIntHits))
	counter(c.smallIntMisses, float64(snap.Pool.SmallIntMisses))
	counter(c.recycleHits, float64(snap.Pool.RecycleHits))
	counter(c.recycleMisses, float64(snap.Pool.RecycleMisses))
	gauge(c.recycleSize, float64(snap.Pool.RecycleSize))
	gauge(c.internedSymbols, float64(snap.Pool.InternedSymbols))

	gauge(c.contPoolSize, float64(snap.Continuations.IdentityPoolSize))
	counter(c.contHits, float64(snap.Continuations.Hits))
	counter(c.contMisses, float64(snap.Continuations.Misses))

	gauge(c.stackDepth, float64(snap.Stack.Depth))
	gauge(c.stackMaxDepth, float64(snap.Stack.MaxDepth))
	gauge(c.stackBytes, float64(snap.Stack.Bytes))
	gauge(c.stackMaxBytes, float64(snap.Stack.MaxBytes))
	counter(c.stackPushes, float64(snap.Stack.PushCount))

	gauge(c.pressure, float64(snap.Pressure))
	gauge(c.strategy, float64(snap.Strategy))
}
