// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Module is a named unit of Scheme source: the body it evaluates, the
// names it makes visible to importers, and the module names it itself
// depends on.
type Module struct {
	Name    string
	Exports []*Symbol
	Imports []string
	Body    []Node
}

// ImportSpec narrows or renames what a module publishes to its
// importer, the `(only ...)`/`(rename ...)` import-clause forms.
type ImportSpec struct {
	Only   []*Symbol          // nil means import every export
	Rename map[*Symbol]*Symbol // export name -> local name
}

// ModuleRegistry loads modules by name, detecting import cycles and
// re-evaluating a module's body fresh on every Load (no diffing, per
// SPEC_FULL.md §4.J: re-loading replaces the previously published
// exports outright).
type ModuleRegistry struct {
	mu       sync.Mutex
	sources  map[string]*Module
	loading  map[string]bool
	exported map[string]*Environment
}

func newModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		sources:  make(map[string]*Module),
		loading:  make(map[string]bool),
		exported: make(map[string]*Environment),
	}
}

// Register makes a module's source available to Load under its Name.
func (r *ModuleRegistry) Register(m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[m.Name] = m
}

// Load evaluates the named module's Imports (recursively) and then its
// own Body in a fresh child of the evaluator's global environment,
// returning that environment so Exports can be copied out of it. A
// module currently on the load path revisited before completing yields
// a SyntaxError naming that module.
func (ev *Evaluator) Load(name string) (*Environment, error) {
	reg := ev.modules
	reg.mu.Lock()
	if reg.loading[name] {
		reg.mu.Unlock()
		return nil, NewError(SyntaxError, fmt.Sprintf("module cycle detected loading %q", name))
	}
	mod, ok := reg.sources[name]
	if !ok {
		reg.mu.Unlock()
		return nil, NewError(RuntimeError, fmt.Sprintf("no such module %q", name))
	}
	reg.loading[name] = true
	reg.mu.Unlock()

	defer func() {
		reg.mu.Lock()
		delete(reg.loading, name)
		reg.mu.Unlock()
	}()

	modEnv := ev.global.Extend()
	var loadErrs *multierror.Error
	for _, dep := range mod.Imports {
		depEnv, err := ev.Load(dep)
		if err != nil {
			loadErrs = multierror.Append(loadErrs, fmt.Errorf("importing %q: %w", dep, err))
			continue
		}
		depMod := reg.sources[dep]
		importInto(modEnv, depEnv, depMod.Exports, nil)
	}
	if loadErrs != nil {
		return nil, loadErrs.ErrorOrNil()
	}

	if _, err := ev.Eval(BeginNode{Exprs: mod.Body}, modEnv); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	reg.exported[name] = modEnv
	reg.mu.Unlock()
	return modEnv, nil
}

// Import brings name's published exports (after Load, if not already
// loaded) into dest, optionally narrowed/renamed by spec.
func (ev *Evaluator) Import(name string, dest *Environment, spec *ImportSpec) error {
	reg := ev.modules
	reg.mu.Lock()
	env, ok := reg.exported[name]
	mod := reg.sources[name]
	reg.mu.Unlock()
	if !ok {
		var err error
		env, err = ev.Load(name)
		if err != nil {
			return err
		}
		mod = reg.sources[name]
	}
	var only []*Symbol
	var rename map[*Symbol]*Symbol
	if spec != nil {
		only, rename = spec.Only, spec.Rename
	}
	importInto(dest, env, mod.Exports, &ImportSpec{Only: only, Rename: rename})
	return nil
}

func importInto(dest, src *Environment, exports []*Symbol, spec *ImportSpec) {
	wanted := exports
	if spec != nil && spec.Only != nil {
		wanted = spec.Only
	}
	for _, name := range wanted {
		v, ok := src.Lookup(name)
		if !ok {
			continue
		}
		local := name
		if spec != nil && spec.Rename != nil {
			if renamed, has := spec.Rename[name]; has {
				local = renamed
			}
		}
		dest.Define(local, v)
	}
}
