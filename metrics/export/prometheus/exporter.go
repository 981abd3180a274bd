package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/metrics/export/internaldefs"
)

type telemetrySource interface {
	Telemetry() goConsole.Telemetry
}

// PrometheusExporter renders console state and Engine metrics in the
// Prometheus text exposition format.
type PrometheusExporter struct {
	source telemetrySource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *goConsole.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

func NewPrometheusExporterFromSource(source telemetrySource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render as text/plain.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition. Session, loader, breaker and audit
// state are always present; Engine counters and histograms only when
// metrics are enabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	t := p.source.Telemetry()

	var b strings.Builder
	b.Grow(8192)

	if len(t.Metrics.Counters) > 0 {
		for _, def := range internaldefs.CounterDefs {
			writeHeader(&b, def.Name, def.Help, "counter")
			writeSample(&b, def.Name, "", strconv.FormatUint(t.Metrics.Counters[def.ID], 10))
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := t.Metrics.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	for _, def := range internaldefs.ValueDefs {
		typ := "gauge"
		if def.Counter {
			typ = "counter"
		}
		writeHeader(&b, def.Name, def.Help, typ)
		writeSample(&b, def.Name, "", strconv.FormatInt(def.Value(t), 10))
	}

	for _, def := range internaldefs.StateSetDefs {
		current := def.Current(t)
		writeHeader(&b, def.Name, def.Help, "gauge")
		for _, state := range def.States {
			writeSample(&b, def.Name, label(def.Label, state), strconv.FormatInt(internaldefs.StateValue(current, state), 10))
		}
	}

	return b.String()
}

func writeHistogram(b *strings.Builder, def internaldefs.HistogramDef, cumulative [8]uint64) {
	writeHeader(b, def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, def.Name+"_bucket", label("le", le), strconv.FormatUint(cumulative[i], 10))
	}
	writeSample(b, def.Name+"_count", "", strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	// Snapshots keep bucket counts only.
	writeSample(b, def.Name+"_sum", "", "0")
}

func writeHeader(b *strings.Builder, name, help, typ string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(typ)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels, value string) {
	b.WriteString(name)
	b.WriteString(labels)
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func label(name, value string) string {
	return "{" + name + "=" + strconv.Quote(value) + "}"
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
