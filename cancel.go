// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "context"

// CancelToken wraps a caller-provided context.Context, polled once per
// outer trampoline iteration (SPEC_FULL.md §5's cooperative cancellation
// model — the evaluator has no internal suspension points, so this is
// the only place cancellation is observed). A nil token never cancels.
type CancelToken struct {
	ctx context.Context
}

// NewCancelToken wraps ctx. Passing context.Background() (or nil)
// disables cancellation entirely.
func NewCancelToken(ctx context.Context) *CancelToken {
	return &CancelToken{ctx: ctx}
}

func (c *CancelToken) checkCancelled() error {
	if c == nil || c.ctx == nil {
		return nil
	}
	select {
	case <-c.ctx.Done():
		return NewError(Cancelled, "evaluation cancelled").WithCause(c.ctx.Err())
	default:
		return nil
	}
}

// WithCause mirrors WithSpan: a shallow copy carrying Cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}
