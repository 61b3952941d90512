// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "sync"

// Environment is a lexically-scoped binding frame with an optional
// parent link. Frames are shared by reference so a closure captured
// over one environment keeps observing mutations made through any other
// reference to the same frame — there is no copy-on-capture.
//
// Concurrent mutation of the same Environment from multiple evaluator
// instances is undefined; callers running more than one evaluator must
// not share a mutable Environment across them without external
// synchronization.
type Environment struct {
	mu       sync.RWMutex
	bindings map[*Symbol]Value
	parent   *Environment
}

// NewEnvironment creates a root environment with no parent.
func NewEnvironment() *Environment {
	return &Environment{bindings: make(map[*Symbol]Value)}
}

// Extend returns a new child frame whose lookups fall through to e when
// a name is not locally bound. This is the ownership boundary for
// closure capture: a lambda holds a reference to the frame active at
// its creation, via Extend.
func (e *Environment) Extend() *Environment {
	return &Environment{bindings: make(map[*Symbol]Value), parent: e}
}

// Define installs name in the innermost (this) frame, shadowing any
// binding of the same name in a parent frame.
func (e *Environment) Define(name *Symbol, v Value) {
	e.mu.Lock()
	e.bindings[name] = v
	e.mu.Unlock()
}

// Lookup walks from e through parents and returns the closest binding.
// ok is false if no frame in the chain binds name.
func (e *Environment) Lookup(name *Symbol) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		f.mu.RLock()
		v, found := f.bindings[name]
		f.mu.RUnlock()
		if found {
			return v, true
		}
	}
	return Value{}, false
}

// Set walks from e through parents, rebinding the first frame that
// already defines name. ok is false (an UnboundVariable condition at the
// caller) if no frame defines name.
func (e *Environment) Set(name *Symbol, v Value) bool {
	for f := e; f != nil; f = f.parent {
		f.mu.Lock()
		if _, found := f.bindings[name]; found {
			f.bindings[name] = v
			f.mu.Unlock()
			return true
		}
		f.mu.Unlock()
	}
	return false
}

// Parent returns the enclosing frame, or nil at the root.
func (e *Environment) Parent() *Environment { return e.parent }
