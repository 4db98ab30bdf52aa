package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/milestoned/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "disabled skips checks", mutate: func(c *Config) { c.Protocol = "bogus" }},
		{name: "local insecure grpc", mutate: func(c *Config) { c.Endpoint = "localhost:4317" }},
		{name: "local insecure http with scheme", mutate: func(c *Config) {
			c.Endpoint = "http://127.0.0.1:4318"
			c.Protocol = ProtocolHTTP
		}},
		{name: "bracketed ipv6 loopback", mutate: func(c *Config) { c.Endpoint = "[::1]:4317" }},
		{name: "remote with tls", mutate: func(c *Config) {
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}},
		{name: "remote insecure", mutate: func(c *Config) { c.Endpoint = "otel.example.com:4317" }, wantErr: true},
		{name: "unknown protocol", mutate: func(c *Config) {
			c.Endpoint = "localhost:4317"
			c.Protocol = "thrift"
		}, wantErr: true},
		{name: "sample rate out of range", mutate: func(c *Config) {
			c.Endpoint = "localhost:4317"
			c.SampleRate = 2
		}, wantErr: true},
		{name: "missing service name", mutate: func(c *Config) {
			c.Endpoint = "localhost:4317"
			c.ServiceName = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.TelemetryConfig{
		Endpoint:        "localhost:4318",
		Protocol:        ProtocolHTTP,
		Insecure:        true,
		SampleRate:      0.5,
		ShutdownTimeout: time.Second,
	}, "1.2.3")

	assert.True(t, cfg.Enabled())
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "milestoned", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 0.5, cfg.SampleRate)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	assert.Equal(t, time.Second, cfg.ShutdownTimeout)

	assert.False(t, FromAppConfig(config.TelemetryConfig{}, "").Enabled())
}

func TestNew_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := New(ctx, NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	_, span := tel.TracerProvider().Tracer("test").Start(ctx, "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tel.ForceFlush(ctx))
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Endpoint = "collector.example.com:4317"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure")
}

func TestNew_ExportsSpansAndMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := NewDefaultConfig()
	cfg.Endpoint = "localhost:4317"

	exporter := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tel, err := New(ctx, cfg, WithSpanExporter(exporter), WithMetricReader(reader))
	require.NoError(t, err)
	require.True(t, tel.Enabled())

	_, span := tel.TracerProvider().Tracer("test").Start(ctx, "agent.run_once")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	counter, err := tel.MeterProvider().Meter("test").Int64Counter("milestoned.agent.runs_total")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	require.NoError(t, tel.ForceFlush(ctx))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent.run_once", spans[0].Name)

	var found bool
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			found = true
			assert.Equal(t, "milestoned", kv.Value.AsString())
		}
	}
	assert.True(t, found, "service.name resource attribute missing")

	require.NoError(t, tel.Shutdown(ctx))
}

func TestNew_OTLPExporterConnectsLazily(t *testing.T) {
	for _, protocol := range []string{ProtocolGRPC, ProtocolHTTP} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Endpoint = "127.0.0.1:1"
			cfg.Protocol = protocol

			tel, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.True(t, tel.Enabled())

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = tel.Shutdown(ctx)
		})
	}
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, newSampler(0.5).Description(), "root:TraceIDRatioBased")
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "otel.example.com", stripScheme("https://otel.example.com"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}

func TestTestTelemetry_CounterValue(t *testing.T) {
	tt := NewTestTelemetry()
	counter, err := tt.MeterProvider().Meter("test").Int64Counter("runs")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2, metricWithStatus("completed"))
	counter.Add(ctx, 1, metricWithStatus("replied"))

	assert.Equal(t, int64(2), tt.CounterValue(t, "runs", attribute.String("status", "completed")))
	assert.Equal(t, int64(3), tt.CounterValue(t, "runs"))
	assert.Zero(t, tt.CounterValue(t, "missing"))
}

func metricWithStatus(status string) metric.AddOption {
	return metric.WithAttributes(attribute.String("status", status))
}
