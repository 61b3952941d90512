// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "testing"

func TestAffineResumeInvokesOnce(t *testing.T) {
	calls := 0
	a := Once(func(n int) int {
		calls++
		return n * 2
	})
	if got := a.Resume(21); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want 1", calls)
	}
}

func TestAffineResumeTwicePanics(t *testing.T) {
	a := Once(func(n int) int { return n })
	a.Resume(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected resuming an already-used affine continuation to panic")
		}
	}()
	a.Resume(2)
}

func TestAffineTryResumeReportsReuse(t *testing.T) {
	a := Once(func(n int) int { return n + 1 })
	v, ok := a.TryResume(1)
	if !ok || v != 2 {
		t.Fatalf("got (%d,%v), want (2,true)", v, ok)
	}
	v2, ok2 := a.TryResume(1)
	if ok2 || v2 != 0 {
		t.Fatalf("got (%d,%v), want (0,false) on second resume", v2, ok2)
	}
}

func TestAffineDiscardPreventsResume(t *testing.T) {
	called := false
	a := Once(func(n int) int { called = true; return n })
	a.Discard()
	if _, ok := a.TryResume(1); ok {
		t.Fatal("TryResume must fail after Discard")
	}
	if called {
		t.Fatal("Discard must not invoke the wrapped continuation")
	}
}
