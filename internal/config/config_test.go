package config

import (
	"testing"
	"time"
)

func TestLoad_HeartbeatTimezone(t *testing.T) {
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("HEARTBEAT_TIMEZONE", "Africa/Nairobi")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Outreach.Timezone.String() != "Africa/Nairobi" {
		t.Errorf("timezone = %s, want Africa/Nairobi", cfg.Outreach.Timezone)
	}
}

func TestLoad_HeartbeatTimezoneDefaultsToLocal(t *testing.T) {
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("HEARTBEAT_TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Outreach.Timezone != time.Local {
		t.Errorf("timezone = %v, want local", cfg.Outreach.Timezone)
	}
}

func TestLoad_InvalidTimezoneRejected(t *testing.T) {
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("HEARTBEAT_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Error("invalid timezone must fail validation")
	}
}
