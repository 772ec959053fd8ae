package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ledgercrm/backend/internal/infrastructure/telemetry"
)

// disabledProvider builds a provider with telemetry off; unit tests never
// need a running collector.
func disabledProvider(t *testing.T, ratio float64) *telemetry.TracerProvider {
	t.Helper()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     ratio,
		ServiceName:       "ledgercrm-backend",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)
	return tp
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp := disabledProvider(t, 1.0)

	assert.False(t, tp.IsEnabled())

	cfg := tp.GetConfig()
	assert.Equal(t, "ledgercrm-backend", cfg.ServiceName)
	assert.False(t, cfg.Enabled)

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_SamplingRatios(t *testing.T) {
	// The sampler choice must not affect construction at any ratio
	for _, ratio := range []float64{0.0, 0.25, 1.0} {
		tp := disabledProvider(t, ratio)
		assert.NoError(t, tp.Shutdown(context.Background()))
	}
}

func TestTracerProvider_TracerWhenDisabled(t *testing.T) {
	tp := disabledProvider(t, 1.0)

	tracer := tp.Tracer("sync-engine")
	require.NotNil(t, tracer)

	// Spans from the no-op tracer are inert but safe to use
	_, span := tracer.Start(context.Background(), "sync.pull")
	span.End()
}

func TestTracerProvider_ForceFlushWhenDisabled(t *testing.T) {
	tp := disabledProvider(t, 1.0)

	assert.NoError(t, tp.ForceFlush(context.Background()))
}

func TestTracerProvider_ShutdownWithCancelledContext(t *testing.T) {
	tp := disabledProvider(t, 1.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A disabled provider has nothing to flush, cancelled or not
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a reachable OTLP collector")
	}

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1.0,
		ServiceName:       "ledgercrm-backend",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("sync-engine").Start(context.Background(), "sync.pull")
	span.End()

	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
