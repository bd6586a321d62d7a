// Package config holds every tunable of the bridge: bind address, liveness
// timings, per-action timeouts, and the size caps applied by the shaping
// layer. Values come from defaults, then BROWSERLINK_* environment
// variables, then CLI flags, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/mstoykov/envconfig"
)

// Config is the full configuration of one bridge process.
type Config struct {
	Addr string `envconfig:"ADDR" default:"127.0.0.1:8765"`

	// Liveness and session housekeeping.
	PingInterval         time.Duration `envconfig:"PING_INTERVAL" default:"10s"`
	PingTimeout          time.Duration `envconfig:"PING_TIMEOUT" default:"5s"`
	PingFailureThreshold int           `envconfig:"PING_FAILURE_THRESHOLD" default:"3"`
	StaleSessionAfter    time.Duration `envconfig:"STALE_SESSION_AFTER" default:"30s"`
	SweepInterval        time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`
	WriteTimeout         time.Duration `envconfig:"WRITE_TIMEOUT" default:"2s"`

	// Action round-trip deadlines.
	DefaultActionTimeout time.Duration `envconfig:"DEFAULT_ACTION_TIMEOUT" default:"10s"`
	DOMSnapshotTimeout   time.Duration `envconfig:"DOM_SNAPSHOT_TIMEOUT" default:"20s"`
	AccessibilityTimeout time.Duration `envconfig:"ACCESSIBILITY_TIMEOUT" default:"30s"`
	MinActionTimeout     time.Duration `envconfig:"MIN_ACTION_TIMEOUT" default:"5s"`
	MaxActionTimeout     time.Duration `envconfig:"MAX_ACTION_TIMEOUT" default:"120s"`

	// Response size caps.
	MaxHTML         int `envconfig:"MAX_HTML" default:"50000"`
	MaxText         int `envconfig:"MAX_TEXT" default:"30000"`
	MaxDOMNodes     int `envconfig:"MAX_DOM_NODES" default:"500"`
	MaxDOMNodesHard int `envconfig:"MAX_DOM_NODES_HARD" default:"2000"`
	MaxRequestBody  int `envconfig:"MAX_REQUEST_BODY" default:"10000"`
	MaxResponseBody int `envconfig:"MAX_RESPONSE_BODY" default:"10000"`

	// Pagination.
	DefaultPageSize int           `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int           `envconfig:"MAX_PAGE_SIZE" default:"200"`
	CursorTTL       time.Duration `envconfig:"CURSOR_TTL" default:"5m"`
}

// New returns the defaults overlaid with BROWSERLINK_* environment
// variables.
func New() (Config, error) {
	var cfg Config
	if err := envconfig.Process("browserlink", &cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the bridge cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("bind address must not be empty")
	}
	if c.PingInterval <= 0 || c.PingTimeout <= 0 {
		return fmt.Errorf("ping interval and timeout must be positive")
	}
	if c.PingFailureThreshold < 1 {
		return fmt.Errorf("ping failure threshold must be at least 1")
	}
	if c.MinActionTimeout > c.MaxActionTimeout {
		return fmt.Errorf("min action timeout %s exceeds max %s", c.MinActionTimeout, c.MaxActionTimeout)
	}
	if c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page size bounds %d/%d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// ActionTimeout resolves the deadline for one action. A caller-supplied
// override wins, clamped to [MinActionTimeout, MaxActionTimeout].
func (c Config) ActionTimeout(action string, override time.Duration) time.Duration {
	if override > 0 {
		if override < c.MinActionTimeout {
			return c.MinActionTimeout
		}
		if override > c.MaxActionTimeout {
			return c.MaxActionTimeout
		}
		return override
	}
	switch action {
	case "getAccessibilityTree":
		return c.AccessibilityTimeout
	case "getDOMSnapshot":
		return c.DOMSnapshotTimeout
	default:
		return c.DefaultActionTimeout
	}
}
