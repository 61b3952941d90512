// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "sync"

// EffectContext is what a host procedure receives alongside its
// argument vector (SPEC_FULL.md §6's host callback signature). It gives
// the callback read access to the evaluator that invoked it — to call
// back into Scheme (Call), to reach the object registry (Bridge), or to
// log through the same logger the evaluator uses — without threading an
// extra parameter through every intervening builtin.
type EffectContext struct {
	ev *Evaluator
}

func (c *EffectContext) Call(callable Value, args []Value) (Value, error) {
	return c.ev.Call(callable, args)
}

func (c *EffectContext) Log() Logger     { return c.ev.log }
func (c *EffectContext) Bridge() *Bridge { return c.ev.bridge }

func (b *Bridge) effectContext(ev *Evaluator) *EffectContext { return &EffectContext{ev: ev} }

// Bridge is the host bridge (component I): a registry of native
// procedures callable from Scheme and a registry of opaque external
// objects Scheme code can hold a handle to but never inspect.
type Bridge struct {
	procedures *ProcedureRegistry
	objects    *ObjectRegistry
}

func newBridge() *Bridge {
	return &Bridge{procedures: newProcedureRegistry(), objects: newObjectRegistry()}
}

// ProcedureRegistry tracks every procedure (builtin or host) installed
// into an Evaluator's global environment, independent of environment
// lookup itself, so a host can enumerate a registration by name without
// walking environment frames.
type ProcedureRegistry struct {
	mu     sync.Mutex
	byName map[string]Value
}

func newProcedureRegistry() *ProcedureRegistry {
	return &ProcedureRegistry{byName: make(map[string]Value)}
}

func (r *ProcedureRegistry) register(name string, v Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = v
}

func (r *ProcedureRegistry) lookup(name string) (Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byName[name]
	return v, ok
}

// RegisterProcedure installs a native Go callback as a Scheme procedure
// named name in the global environment, arity/type-checked against sig
// on every call per SPEC_FULL.md §4.I. sig may be nil to skip checking
// (a variadic, untyped host procedure).
func (ev *Evaluator) RegisterProcedure(name string, sig *Signature, fn func(args []Value, ctx *EffectContext) (Value, error)) {
	checked := func(args []Value, ctx *EffectContext) (Value, error) {
		if sig != nil {
			if err := sig.Validate(name, args); err != nil {
				return Value{}, err
			}
		}
		v, err := fn(args, ctx)
		if err != nil {
			return Value{}, err
		}
		if sig != nil {
			if err := sig.ValidateReturn(name, v); err != nil {
				return Value{}, err
			}
		}
		return v, nil
	}
	hp := NewHostProcedure(name, sig, checked)
	ev.bridge.procedures.register(name, hp)
	ev.global.Define(Intern(name), hp)
}

// ObjectRegistry hands out monotonically increasing ids for opaque
// foreign objects, per SPEC_FULL.md §4.I's "sequential ids, not UUIDs".
type ObjectRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*registeredObject
}

type registeredObject struct {
	opaque   any
	typeName string
	release  *Affine[struct{}, struct{}]
}

func newObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{entries: make(map[uint64]*registeredObject)}
}

// RegisterExternalObject assigns opaque a fresh id, tags it typeName,
// and returns an [External] Value wrapping the id for the Scheme side
// to hold. release, if non-nil, is guaranteed to fire at most once — the
// same one-shot discipline [Affine] gives closure-based continuations,
// here guarding a finalizer instead of a resumption.
func (ev *Evaluator) RegisterExternalObject(opaque any, typeName string, release func()) Value {
	reg := ev.bridge.objects
	reg.mu.Lock()
	reg.nextID++
	id := reg.nextID
	var guard *Affine[struct{}, struct{}]
	if release != nil {
		guard = Once(func(struct{}) struct{} { release(); return struct{}{} })
	}
	reg.entries[id] = &registeredObject{opaque: opaque, typeName: typeName, release: guard}
	reg.mu.Unlock()
	return ExternalValue(&External{Id: id, TypeName: typeName})
}

// Lookup retrieves the opaque payload registered under ext's id.
func (b *Bridge) Lookup(ext *External) (any, bool) {
	b.objects.mu.Lock()
	defer b.objects.mu.Unlock()
	entry, ok := b.objects.entries[ext.Id]
	if !ok {
		return nil, false
	}
	return entry.opaque, true
}

// Release fires ext's release callback exactly once (a second call is a
// no-op) and forgets the registration.
func (b *Bridge) Release(ext *External) {
	b.objects.mu.Lock()
	entry, ok := b.objects.entries[ext.Id]
	if ok {
		delete(b.objects.entries, ext.Id)
	}
	b.objects.mu.Unlock()
	if !ok || entry.release == nil {
		return
	}
	entry.release.TryResume(struct{}{})
}
