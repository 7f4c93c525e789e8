package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const instrumentationName = "github.com/pthm-cable/wheels/telemetry"

// Metrics exports wheel events as OpenTelemetry instruments.
type Metrics struct {
	breaks           metric.Int64Counter
	repairs          metric.Int64Counter
	repairRejections metric.Int64Counter
	energyDrawn      metric.Float64Histogram
}

// NewMetrics creates the instruments on m. A nil meter uses the global
// provider, which is a no-op until one is installed.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var (
		mt  Metrics
		err error
	)
	mt.breaks, err = m.Int64Counter(
		"wheels.breaks",
		metric.WithDescription("Units broken by overstress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaks counter: %w", err)
	}
	mt.repairs, err = m.Int64Counter(
		"wheels.repairs",
		metric.WithDescription("Successful unit repairs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repairs counter: %w", err)
	}
	mt.repairRejections, err = m.Int64Counter(
		"wheels.repair_rejections",
		metric.WithDescription("Repairs refused for insufficient skill"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repair rejections counter: %w", err)
	}
	mt.energyDrawn, err = m.Float64Histogram(
		"wheels.energy_drawn",
		metric.WithDescription("EC drawn by all motors per tick"),
		metric.WithUnit("{EC}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating energy histogram: %w", err)
	}
	return &mt, nil
}

// RecordBreak counts a unit breaking.
func (m *Metrics) RecordBreak(ctx context.Context, unitID string) {
	if m == nil {
		return
	}
	m.breaks.Add(ctx, 1, metric.WithAttributes(attribute.String("unit", unitID)))
}

// RecordRepair counts a repair attempt; rejected attempts go to their own counter.
func (m *Metrics) RecordRepair(ctx context.Context, unitID string, rejected bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("unit", unitID))
	if rejected {
		m.repairRejections.Add(ctx, 1, attrs)
		return
	}
	m.repairs.Add(ctx, 1, attrs)
}

// RecordEnergy records the EC drawn in one tick.
func (m *Metrics) RecordEnergy(ctx context.Context, drawn float64) {
	if m == nil {
		return
	}
	m.energyDrawn.Record(ctx, drawn)
}

// MeterSource is an in-process meter provider whose readings are pulled on
// demand rather than exported.
type MeterSource struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewMeterSource creates a meter provider backed by a manual reader.
func NewMeterSource() *MeterSource {
	reader := sdkmetric.NewManualReader()
	return &MeterSource{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:   reader,
	}
}

// Meter returns the meter to pass to NewMetrics.
func (s *MeterSource) Meter() metric.Meter {
	return s.provider.Meter(instrumentationName)
}

// Totals collects every instrument and returns its value summed over all
// attribute sets, keyed by instrument name. Histograms report their sum.
func (s *MeterSource) Totals(ctx context.Context) (map[string]float64, error) {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}
	totals := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[md.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					totals[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					totals[md.Name] += dp.Sum
				}
			}
		}
	}
	return totals, nil
}

// Shutdown releases the provider.
func (s *MeterSource) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
