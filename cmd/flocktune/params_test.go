package main

import (
	"testing"

	"github.com/pthm-cable/flock/config"
)

// TestApplyToConfig_CopyDoesNotAliasBase verifies that writing parameters
// into a struct copy of the base config leaves the base untouched, so the
// final best-config write can reuse the config loaded at startup.
func TestApplyToConfig_CopyDoesNotAliasBase(t *testing.T) {
	base, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pv := NewParamVector()
	cfg := *base
	vals := pv.DefaultVector()
	vals[0] = 0.9 // alignment_strength
	pv.ApplyToConfig(&cfg, vals)

	if cfg.Flocking.AlignmentStrength != 0.9 {
		t.Errorf("copy alignment_strength = %v, want 0.9", cfg.Flocking.AlignmentStrength)
	}
	if base.Flocking.AlignmentStrength != 0.15 {
		t.Errorf("base alignment_strength = %v after writing the copy, want 0.15",
			base.Flocking.AlignmentStrength)
	}
}
