package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "empty plan path",
			mutate:  func(c *Config) { c.Plan.Path = "" },
			wantErr: "plan.path is required",
		},
		{
			name:    "empty artifacts dir",
			mutate:  func(c *Config) { c.Artifacts.Dir = "" },
			wantErr: "artifacts.dir is required",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Model.Timeout = 0 },
			wantErr: "model.timeout",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Model.Temperature = 3 },
			wantErr: "model.temperature",
		},
		{
			name:    "unknown telemetry protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "thrift" },
			wantErr: "telemetry.protocol",
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "telemetry.sample_rate",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Telemetry.ShutdownTimeout = 0 },
			wantErr: "telemetry.shutdown_timeout",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "errors are joined",
			mutate: func(c *Config) {
				c.Model.Name = ""
				c.Model.Timeout = -time.Second
			},
			wantErr: "model.name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-live-123")

	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q", s.String())
	}
	if got := fmt.Sprintf("%v %#v", s, s); strings.Contains(got, "sk-live") {
		t.Errorf("formatted secret leaked: %q", got)
	}
	b, err := json.Marshal(struct{ Key Secret }{s})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "sk-live") {
		t.Errorf("json leaked secret: %s", b)
	}
	if s.Value() != "sk-live-123" {
		t.Errorf("Value() = %q", s.Value())
	}
	if Secret("").String() != "" || Secret("").IsSet() {
		t.Error("empty secret should render empty and report unset")
	}
}
