package license

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry counters for license operations.
type Metrics struct {
	keysGenerated metric.Int64Counter
	redemptions   metric.Int64Counter
	extensions    metric.Int64Counter
}

// NewMetrics registers the license counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	keysGenerated, err := meter.Int64Counter("certigen.license.keys_generated",
		metric.WithDescription("Activation keys issued"))
	if err != nil {
		return nil, err
	}
	redemptions, err := meter.Int64Counter("certigen.license.redemptions",
		metric.WithDescription("Activation key redemption attempts"))
	if err != nil {
		return nil, err
	}
	extensions, err := meter.Int64Counter("certigen.license.extensions",
		metric.WithDescription("License extensions applied"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		keysGenerated: keysGenerated,
		redemptions:   redemptions,
		extensions:    extensions,
	}, nil
}

// RecordKeyGenerated counts an issued key.
func (m *Metrics) RecordKeyGenerated(ctx context.Context) {
	m.keysGenerated.Add(ctx, 1)
}

// RecordRedemption counts a redemption attempt by outcome.
func (m *Metrics) RecordRedemption(ctx context.Context, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordExtension counts an applied license extension by source
// ("redemption" or "payment").
func (m *Metrics) RecordExtension(ctx context.Context, source string) {
	m.extensions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
