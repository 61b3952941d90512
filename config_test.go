// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesCompiledInConstants(t *testing.T) {
	c := DefaultConfig()
	if c.Pool.SmallIntMin != smallIntMin || c.Pool.SmallIntMax != smallIntMax {
		t.Fatalf("got %+v, want the compiled-in small-int range", c.Pool)
	}
	if c.Stack.RecursionHardDepth != recursionHardDepth {
		t.Fatalf("got %d, want %d", c.Stack.RecursionHardDepth, recursionHardDepth)
	}
	if c.LogLevel != "info" {
		t.Fatalf("got %q, want the default log level info", c.LogLevel)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("a missing config file must not be an error, got %v", err)
	}
	want := DefaultConfig()
	if c.LogLevel != want.LogLevel || c.Stack.RecursionHardDepth != want.Stack.RecursionHardDepth {
		t.Fatalf("got %+v, want defaults %+v", c, want)
	}
}

func TestLoadConfigOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lambdust.toml")
	body := "log_level = \"debug\"\n\n[stack]\nrecursion_hard_depth = 4096\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("got %q, want debug", c.LogLevel)
	}
	if c.Stack.RecursionHardDepth != 4096 {
		t.Fatalf("got %d, want 4096", c.Stack.RecursionHardDepth)
	}
	// Untouched sections must keep their default values.
	if c.Pool.SmallIntMin != smallIntMin {
		t.Fatalf("got %d, want the default small_int_min %d to survive a partial override", c.Pool.SmallIntMin, smallIntMin)
	}
}

func TestLoadConfigMalformedTOMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("this is not valid [toml"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected a SyntaxError decoding malformed TOML")
	}
	le, ok := err.(*Error)
	if !ok || le.Kind != SyntaxError {
		t.Fatalf("got %v, want SyntaxError", err)
	}
}
