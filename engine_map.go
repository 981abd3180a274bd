package goConsole

import (
	"context"
	"time"

	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/mapapi"
)

// LoadMap loads the map provider SDK at most once. Concurrent callers share
// one load chain; a chain that ran out of retries leaves the loader idle so
// a later call starts a fresh one.
func (e *Engine) LoadMap(ctx context.Context) (*MapSDK, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.mapLoader == nil {
		return nil, mapapi.ErrMissingAPIKey
	}
	start := time.Now()
	sdk, err := e.mapLoader.Load(ctx)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricResourceLoadLatency, time.Since(start))
	}
	return sdk, err
}

// MapStatus reports the loader's state.
func (e *Engine) MapStatus() LoadStatus {
	if e == nil || e.mapLoader == nil {
		return loader.Status{}
	}
	return e.mapLoader.Status()
}

// ResetMap abandons a load chain in flight so the next LoadMap starts a new
// one. Callers still waiting on the old chain get ErrResourceLoadAbandoned.
// A loaded SDK stays cached.
func (e *Engine) ResetMap() {
	if e == nil || e.mapLoader == nil {
		return
	}
	e.mapLoader.Reset()
}
