package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/goConsole/loader"
	"github.com/MrEthical07/goConsole/mapapi"
)

type benchOptions struct {
	ops         int
	concurrency int
	resetEvery  int
	latency     time.Duration
	failRate    float64
	retries     int
}

func (o *benchOptions) addFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.ops, "bench-ops", 20000, "bench-loader: total Load calls")
	fs.IntVar(&o.concurrency, "bench-concurrency", 64, "bench-loader: concurrent callers")
	fs.IntVar(&o.resetEvery, "bench-reset-every", 500, "bench-loader: abandon the chain in flight after this many calls (0 never)")
	fs.DurationVar(&o.latency, "bench-latency", 2*time.Millisecond, "bench-loader: simulated SDK readiness delay")
	fs.Float64Var(&o.failRate, "bench-fail-rate", 0.1, "bench-loader: probability an injection reports failure")
	fs.IntVar(&o.retries, "bench-retries", 3, "bench-loader: attempts per load chain")
}

// simulatedSDK stands in for the provider script: each injection becomes
// ready or fails after a delay.
type simulatedSDK struct {
	latency  time.Duration
	failRate float64

	mu   sync.Mutex
	rng  *rand.Rand
	live map[string]bool

	injections atomic.Int64
	failures   atomic.Int64
}

func (s *simulatedSDK) Inject(_ context.Context, id string, signal loader.Signal[*mapapi.SDK]) error {
	s.injections.Add(1)
	s.mu.Lock()
	s.live[id] = true
	fail := s.rng.Float64() < s.failRate
	s.mu.Unlock()

	go func() {
		time.Sleep(s.latency)
		if fail {
			s.failures.Add(1)
			signal.Failed(id, errors.New("simulated script error"))
			return
		}
		signal.Ready(id, &mapapi.SDK{Version: "sim", Callback: mapapi.CallbackName(id), LoadedAt: time.Now()})
	}()
	return nil
}

func (s *simulatedSDK) Remove(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

func (s *simulatedSDK) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func runBench(ctx context.Context, out io.Writer, logger *slog.Logger, o benchOptions) error {
	if o.ops <= 0 || o.concurrency <= 0 || o.retries <= 0 {
		return errors.New("bench-ops, bench-concurrency and bench-retries must be > 0")
	}
	if o.failRate < 0 || o.failRate >= 1 {
		return errors.New("bench-fail-rate must be in [0, 1)")
	}

	sim := &simulatedSDK{
		latency:  o.latency,
		failRate: o.failRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		live:     make(map[string]bool),
	}
	var coalesced, chainsLoaded, chainsFailed atomic.Int64
	l := loader.New[*mapapi.SDK](sim, loader.Config{
		Name:           "bench",
		MaxRetries:     o.retries,
		AttemptTimeout: o.latency*10 + 100*time.Millisecond,
		BackoffBase:    time.Millisecond,
	}, loader.WithLogger(logger), loader.WithHooks(loader.Hooks{
		OnCoalesced: func() { coalesced.Add(1) },
		OnLoaded:    func(time.Duration) { chainsLoaded.Add(1) },
		OnFailed:    func(error) { chainsFailed.Add(1) },
	}))
	defer l.Close()

	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, o.ops)
		mu        sync.Mutex
	)

	fmt.Fprintf(out, "running %d loads with %d callers...\n", o.ops, o.concurrency)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < o.concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= o.ops {
					return nil
				}
				if o.resetEvery > 0 && i > 0 && i%o.resetEvery == 0 {
					l.Reset()
				}
				t0 := time.Now()
				_, err := l.Load(gctx)
				d := time.Since(t0)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stats := computeStats(time.Since(start), latencies, failures)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "load", stats)
	fmt.Fprintf(out, "injections=%d injection-failures=%d chains-loaded=%d chains-exhausted=%d coalesced=%d leaked-scripts=%d\n",
		sim.injections.Load(),
		sim.failures.Load(),
		chainsLoaded.Load(),
		chainsFailed.Load(),
		coalesced.Load(),
		sim.active(),
	)
	return nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
