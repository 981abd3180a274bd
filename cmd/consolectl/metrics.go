package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goConsole "github.com/MrEthical07/goConsole"
	otelexport "github.com/MrEthical07/goConsole/metrics/export/otel"
	"github.com/MrEthical07/goConsole/metrics/export/prometheus"
)

const (
	metricsNone = ""
	metricsProm = "prom"
	metricsOTel = "otel"
)

func validMetricsFormat(format string) error {
	switch format {
	case metricsNone, metricsProm, metricsOTel:
		return nil
	default:
		return fmt.Errorf("invalid --metrics %q: want prom or otel", format)
	}
}

func printMetrics(ctx context.Context, w io.Writer, engine *goConsole.Engine, format string) error {
	switch format {
	case metricsProm:
		_, err := io.WriteString(w, prometheus.NewPrometheusExporter(engine).Render())
		return err
	case metricsOTel:
		return printOTelMetrics(ctx, w, engine)
	default:
		return nil
	}
}

// printOTelMetrics collects once through an OpenTelemetry SDK reader and
// prints one sorted name{attrs} value line per data point.
func printOTelMetrics(ctx context.Context, w io.Writer, engine *goConsole.Engine) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	exp, err := otelexport.NewOTelExporter(provider.Meter("consolectl"), engine)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, otelLine(m.Name, dp.Attributes, dp.Value))
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, otelLine(m.Name, dp.Attributes, dp.Value))
				}
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func otelLine(name string, attrs attribute.Set, value int64) string {
	if attrs.Len() > 0 {
		name += "{" + attrs.Encoded(attribute.DefaultEncoder()) + "}"
	}
	return fmt.Sprintf("%s %d", name, value)
}
