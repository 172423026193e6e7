// Package config holds the immutable runtime configuration for the
// daemon: no globals, no mutation after construction (spec §9).
package config

import (
	"fmt"
	"time"
)

// LayoutConfig tunes internal/layout's force-directed algorithm.
type LayoutConfig struct {
	Repulsion   float64
	Attraction  float64
	RestLength  float64
	Damping     float64
	Epsilon     float64
	StableSteps int
	MaxSteps    int
	MinDistance float64
}

// Config is the immutable set of options spec.md §6 names, plus the
// projection retry settings ApplyRetryBaseBackoff and MaxApplyAttempts.
// Construct one with New and always call Validate before using it.
type Config struct {
	SnapshotIntervalEvents      int64
	MaxConflictRetries          int
	BridgeCapacity              int
	Layout                      LayoutConfig
	LayoutDiameterSizeThreshold int
	ChainVerifyOnStartup        bool
	ApplyRetryBaseBackoff       time.Duration
	MaxApplyAttempts            int
}

// Default returns spec.md's illustrative defaults.
func Default() Config {
	return Config{
		SnapshotIntervalEvents: 200,
		MaxConflictRetries:     5,
		BridgeCapacity:         4096,
		Layout: LayoutConfig{
			Repulsion:   1.0,
			Attraction:  0.05,
			RestLength:  1.0,
			Damping:     0.85,
			Epsilon:     1e-4,
			StableSteps: 5,
			MaxSteps:    1000,
			MinDistance: 1e-6,
		},
		LayoutDiameterSizeThreshold: 2000,
		ChainVerifyOnStartup:        true,
		ApplyRetryBaseBackoff:       50 * time.Millisecond,
		MaxApplyAttempts:            5,
	}
}

// Error reports a failed precondition on one Config field, matching §7's
// ConfigError semantics.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate fails fast on any field outside the bounds the rest of the
// module assumes (mirrors the teacher's precondition-checked
// constructors, e.g. NewQuotaEnforcer, CompileConcept's required-field
// checks).
func (c Config) Validate() error {
	if c.SnapshotIntervalEvents <= 0 {
		return &Error{Field: "SnapshotIntervalEvents", Reason: "must be > 0"}
	}
	if c.MaxConflictRetries <= 0 {
		return &Error{Field: "MaxConflictRetries", Reason: "must be > 0"}
	}
	if c.BridgeCapacity <= 0 {
		return &Error{Field: "BridgeCapacity", Reason: "must be > 0"}
	}
	if c.Layout.Repulsion <= 0 {
		return &Error{Field: "Layout.Repulsion", Reason: "must be > 0"}
	}
	if c.Layout.Attraction <= 0 {
		return &Error{Field: "Layout.Attraction", Reason: "must be > 0"}
	}
	if c.Layout.Damping <= 0 || c.Layout.Damping >= 1 {
		return &Error{Field: "Layout.Damping", Reason: "must be in (0,1)"}
	}
	if c.Layout.MaxSteps <= 0 {
		return &Error{Field: "Layout.MaxSteps", Reason: "must be > 0"}
	}
	if c.Layout.MinDistance <= 0 {
		return &Error{Field: "Layout.MinDistance", Reason: "must be > 0"}
	}
	if c.LayoutDiameterSizeThreshold <= 0 {
		return &Error{Field: "LayoutDiameterSizeThreshold", Reason: "must be > 0"}
	}
	if c.ApplyRetryBaseBackoff <= 0 {
		return &Error{Field: "ApplyRetryBaseBackoff", Reason: "must be > 0"}
	}
	if c.MaxApplyAttempts <= 0 {
		return &Error{Field: "MaxApplyAttempts", Reason: "must be > 0"}
	}
	return nil
}
