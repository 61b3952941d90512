// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// smallIntMin and smallIntMax bound the cached integer range: Value
// construction for any n in [smallIntMin, smallIntMax] returns the same
// pooled Value, so eq? holds for repeated construction of equal small
// integers. 128 is deliberately the first value outside the cache.
const (
	smallIntMin = -128
	smallIntMax = 127
	smallIntN   = smallIntMax - smallIntMin + 1

	valueRecycleCap         = 1000
	continuationPrePopulate = 50
	continuationRecycleCap  = 100
)

// PoolStats reports hit/miss counters for the value pool, exported to
// [AdaptiveMemoryManager] and to the Prometheus gauges in metrics.go.
type PoolStats struct {
	SmallIntHits    uint64
	SmallIntMisses  uint64
	RecycleHits     uint64
	RecycleMisses   uint64
	RecycleSize     int
	InternedSymbols int
}

// ContinuationPoolStats reports the continuation recycler's occupancy.
type ContinuationPoolStats struct {
	IdentityPoolSize int
	Hits             uint64
	Misses           uint64
}

// ValuePool hands out the cached boolean/nil singletons and the
// small-integer range, and accepts simple atoms back for reuse via
// Recycle. It is process-global (see the Open Questions resolution in
// SPEC_FULL.md §9): multiple Evaluator instances in one process share
// one cache, which is the convenient — if coupling — choice the
// calibration source makes.
type ValuePool struct {
	mu           sync.Mutex
	smallInts    [smallIntN]Value
	recycle      []Value
	smallIntHits uint64
	smallIntMiss uint64
	recycleHits  uint64
	recycleMiss  uint64
}

func newValuePool() *ValuePool {
	p := &ValuePool{}
	for i := 0; i < smallIntN; i++ {
		n := int64(i + smallIntMin)
		p.smallInts[i] = Value{tag: tagNumber, num: Number{Kind: NumberInteger, Int: n}}
	}
	return p
}

// integer returns the pooled Value for n when it falls in the cached
// range, otherwise a freshly constructed (uncached, but still cheaply
// copyable) integer Value.
func (p *ValuePool) integer(n int64) Value {
	if n >= smallIntMin && n <= smallIntMax {
		p.mu.Lock()
		p.smallIntHits++
		v := p.smallInts[n-smallIntMin]
		p.mu.Unlock()
		return v
	}
	p.mu.Lock()
	p.smallIntMiss++
	p.mu.Unlock()
	return Value{tag: tagNumber, num: Number{Kind: NumberInteger, Int: n}}
}

// Recycle accepts a simple atom (number, character, or string) for
// later reuse. Compound values (pairs, vectors, hashtables, callables)
// are ignored: recycling them would require ownership analysis the pool
// does not perform. The recycle buffer has a soft cap; values offered
// past valueRecycleCap are simply discarded.
func (p *ValuePool) Recycle(v Value) {
	switch v.tag {
	case tagNumber, tagCharacter, tagString:
	default:
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recycle) >= valueRecycleCap {
		return
	}
	p.recycle = append(p.recycle, v)
}

// Stats snapshots the pool's hit/miss counters.
func (p *ValuePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		SmallIntHits:   p.smallIntHits,
		SmallIntMisses: p.smallIntMiss,
		RecycleHits:    p.recycleHits,
		RecycleMisses:  p.recycleMiss,
		RecycleSize:    len(p.recycle),
	}
}

var globalValuePool = newValuePool()

// SymbolInterner is the process-wide symbol table: Intern(s) returns an
// existing handle for text s if one was already installed, otherwise
// installs and returns a new one. Installed handles are never reclaimed
// during process lifetime. Backed by an immutable radix tree keyed on
// the symbol's UTF-8 bytes so point lookups after warm-up are cheap;
// both reads and inserts take the guarding mutex, per the concurrency
// model's "reads and inserts both take the lock" requirement — the
// radix tree's structural sharing just keeps that critical section
// short.
type SymbolInterner struct {
	mu     sync.Mutex
	tree   *iradix.Tree[*Symbol]
	hits   uint64
	misses uint64
}

func newSymbolInterner() *SymbolInterner {
	return &SymbolInterner{tree: iradix.New[*Symbol]()}
}

// Intern returns the shared *Symbol handle for name, installing one if
// this is the first time name has been seen.
func (si *SymbolInterner) Intern(name string) *Symbol {
	key := []byte(name)
	si.mu.Lock()
	defer si.mu.Unlock()
	if sym, found := si.tree.Get(key); found {
		si.hits++
		return sym
	}
	sym := &Symbol{Name: name}
	tree, _, _ := si.tree.Insert(key, sym)
	si.tree = tree
	si.misses++
	return sym
}

// Len returns the number of distinct symbols interned so far.
func (si *SymbolInterner) Len() int {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.tree.Len()
}

var globalInterner = newSymbolInterner()

// Intern interns name against the process-global symbol table.
func Intern(name string) *Symbol { return globalInterner.Intern(name) }

// ContinuationPool pre-populates and recycles [IdentityFrame] values —
// the terminal, allocation-free continuation every evaluation eventually
// reduces to. Other frame variants are not pooled here; they carry
// request-specific closures/data whose lifetime the trampoline itself
// manages.
type ContinuationPool struct {
	mu     sync.Mutex
	ring   []Frame
	hits   uint64
	misses uint64
}

func newContinuationPool() *ContinuationPool {
	cp := &ContinuationPool{}
	for i := 0; i < continuationPrePopulate; i++ {
		cp.ring = append(cp.ring, IdentityFrame{})
	}
	return cp
}

// GetIdentity returns a ring-pooled IdentityFrame, or constructs one
// fresh if the ring is empty. IdentityFrame is a zero-size immutable
// value so "construction" never allocates — the ring exists purely to
// keep the pool's hit/miss telemetry meaningful for E.
func (cp *ContinuationPool) GetIdentity() Frame {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if n := len(cp.ring); n > 0 {
		f := cp.ring[n-1]
		cp.ring = cp.ring[:n-1]
		cp.hits++
		return f
	}
	cp.misses++
	return IdentityFrame{}
}

// Recycle returns f to the ring if it is an IdentityFrame and the ring
// has not reached its soft cap; any other frame kind is dropped.
func (cp *ContinuationPool) Recycle(f Frame) {
	if _, ok := f.(IdentityFrame); !ok {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if len(cp.ring) >= continuationRecycleCap {
		return
	}
	cp.ring = append(cp.ring, f)
}

// Stats snapshots the continuation pool's occupancy.
func (cp *ContinuationPool) Stats() ContinuationPoolStats {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return ContinuationPoolStats{IdentityPoolSize: len(cp.ring), Hits: cp.hits, Misses: cp.misses}
}

var globalContinuationPool = newContinuationPool()
