// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// force evaluates a promise's expression the first time it is forced and
// memoizes the result, per R7RS delay/force. A promise forced again
// (including recursively, from within its own evaluation) returns the
// memoized result once available; forcing a non-promise value simply
// returns it unchanged, matching implementations that allow force on an
// already-evaluated value.
func (ev *Evaluator) force(v Value) (Value, error) {
	p, ok := v.AsPromise()
	if !ok {
		return v, nil
	}
	p.mu.Lock()
	if p.Forced {
		result := p.Result
		p.mu.Unlock()
		return result, nil
	}
	expr, env := p.Expr, p.Env
	p.mu.Unlock()

	result, err := ev.Eval(expr, env)
	if err != nil {
		return Value{}, err
	}
	// A promise's expression may itself force this same promise (a
	// self-referential delay); the first completed evaluation wins.
	p.mu.Lock()
	if !p.Forced {
		p.Forced = true
		p.Result = result
		p.Expr, p.Env = nil, nil
	}
	result = p.Result
	p.mu.Unlock()
	return result, nil
}
