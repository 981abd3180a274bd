package otel

import (
	"context"
	"errors"
	"fmt"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil telemetry source")
)

type telemetrySource interface {
	Telemetry() goConsole.Telemetry
}

type counterInstrument struct {
	id         goConsole.MetricID
	instrument metric.Int64ObservableCounter
}

// histogramInstrument reports cumulative bucket counts on one gauge, one
// data point per le attribute.
type histogramInstrument struct {
	id      goConsole.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type valueInstrument struct {
	def        internaldefs.ValueDef
	instrument metric.Int64Observable
}

type stateSetInstrument struct {
	def        internaldefs.StateSetDef
	instrument metric.Int64ObservableGauge
	attrs      []metric.ObserveOption
}

// OTelExporter publishes console telemetry through observable instruments
// read on every collection.
type OTelExporter struct {
	source       telemetrySource
	registration metric.Registration
	counters     []counterInstrument
	histograms   []histogramInstrument
	values       []valueInstrument
	stateSets    []stateSetInstrument
	bucketAttrs  []metric.ObserveOption
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *goConsole.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source telemetrySource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	for _, le := range internaldefs.HistogramBounds {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le))))
	}

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative count per le bound."))
		if err != nil {
			return nil, fmt.Errorf("create histogram buckets %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, histogramInstrument{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	for _, def := range internaldefs.ValueDefs {
		var (
			ins metric.Int64Observable
			err error
		)
		if def.Counter {
			ins, err = meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		} else {
			ins, err = meter.Int64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", def.Name, err)
		}
		e.values = append(e.values, valueInstrument{def: def, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.StateSetDefs {
		ins, err := meter.Int64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create state set %s: %w", def.Name, err)
		}
		s := stateSetInstrument{def: def, instrument: ins}
		for _, state := range def.States {
			s.attrs = append(s.attrs, metric.WithAttributeSet(attribute.NewSet(attribute.String(def.Label, state))))
		}
		e.stateSets = append(e.stateSets, s)
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	t := e.source.Telemetry()

	// Counters and histograms exist only while Engine metrics are enabled.
	if len(t.Metrics.Counters) > 0 {
		for _, c := range e.counters {
			o.ObserveInt64(c.instrument, int64(t.Metrics.Counters[c.id]))
		}
	}
	for _, h := range e.histograms {
		raw, ok := t.Metrics.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, attrs := range e.bucketAttrs {
			o.ObserveInt64(h.buckets, int64(cumulative[i]), attrs)
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	for _, v := range e.values {
		o.ObserveInt64(v.instrument, v.def.Value(t))
	}
	for _, s := range e.stateSets {
		current := s.def.Current(t)
		for i, state := range s.def.States {
			o.ObserveInt64(s.instrument, internaldefs.StateValue(current, state), s.attrs[i])
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
