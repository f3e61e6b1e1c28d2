package hwcodec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// TrialOutcome classifies how a probing trial ended.
type TrialOutcome int

const (
	TrialAccepted   TrialOutcome = iota // Status 0 and at least one adapter
	TrialNoAdapters                     // Status 0 but no adapter written
	TrialFailed                         // Nonzero status
	TrialSkipped                        // No sample for the candidate's format
	TrialTimedOut                       // Abandoned after ProberConfig.TrialTimeout
	TrialCanceled                       // Abandoned because the probe context ended
	TrialPanicked                       // The backend call panicked
)

func (o TrialOutcome) String() string {
	switch o {
	case TrialAccepted:
		return "accepted"
	case TrialNoAdapters:
		return "no-adapters"
	case TrialFailed:
		return "failed"
	case TrialSkipped:
		return "skipped"
	case TrialTimedOut:
		return "timed-out"
	case TrialCanceled:
		return "canceled"
	case TrialPanicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// TrialResult describes one (driver, format, API) trial.
type TrialResult struct {
	Driver     Driver
	DataFormat DataFormat
	API        API
	Outcome    TrialOutcome
	Status     int32
	Adapters   []AdapterDesc
	Duration   time.Duration
}

// ProbeReport is the result of one probing pass. Contexts has no defined
// order and should be treated as a set.
type ProbeReport struct {
	Contexts []DecodeContext
	Trials   []TrialResult
}

// ProberConfig configures a Prober.
type ProberConfig struct {
	Registry       *Registry     // Drivers to probe (nil = DefaultRegistry)
	Samples        *SampleSet    // Sample bitstreams (nil = DefaultSamples)
	TrialTimeout   time.Duration // Per-trial limit (0 = wait indefinitely)
	MaxConcurrency int           // Concurrent trials (0 = one goroutine per candidate)
	MaxAdapters    int           // Descriptor buffer capacity (0 = MaxAdaptersPerVendor)
}

// DefaultProberConfig returns a default prober configuration.
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		TrialTimeout: 10 * time.Second,
		MaxAdapters:  MaxAdaptersPerVendor,
	}
}

// Prober discovers usable decode contexts by running a real trial decode for
// every candidate of every registered driver.
type Prober struct {
	config ProberConfig
}

// NewProber creates a prober.
func NewProber(config ProberConfig) *Prober {
	if config.MaxAdapters <= 0 {
		config.MaxAdapters = MaxAdaptersPerVendor
	}
	return &Prober{config: config}
}

// Available probes the default registry with the default samples and returns
// every context that accepted a trial. An empty result means no supported
// hardware and is not an error.
func Available(outputSharedHandle bool) []DecodeContext {
	return NewProber(DefaultProberConfig()).Available(context.Background(), outputSharedHandle)
}

// Available returns every context that accepted a trial.
func (p *Prober) Available(ctx context.Context, outputSharedHandle bool) []DecodeContext {
	return p.Probe(ctx, outputSharedHandle).Contexts
}

// contextSet is the only state shared between trials. The lock covers the
// append, never a native call.
type contextSet struct {
	mu    sync.Mutex
	items []DecodeContext
}

func (s *contextSet) add(ctxs ...DecodeContext) {
	s.mu.Lock()
	s.items = append(s.items, ctxs...)
	s.mu.Unlock()
}

func (s *contextSet) snapshot() []DecodeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DecodeContext, len(s.items))
	copy(out, s.items)
	return out
}

type trial struct {
	draft  DecodeContext
	calls  CallTable
	sample []byte
}

// Probe runs every trial concurrently and waits for all of them.
func (p *Prober) Probe(ctx context.Context, outputSharedHandle bool) ProbeReport {
	registry := p.config.Registry
	if registry == nil {
		registry = defaultRegistry
	}
	samples := p.config.Samples
	if samples == nil {
		samples = DefaultSamples()
	}

	var trials []trial
	var results []TrialResult
	for _, driver := range registry.Drivers() {
		b, ok := registry.lookup(driver)
		if !ok {
			continue
		}
		for _, c := range b.candidates {
			draft := DecodeContext{
				Driver:             driver,
				DataFormat:         c.DataFormat,
				API:                c.API,
				OutputSharedHandle: outputSharedHandle,
			}
			sample := samples.Get(c.DataFormat)
			if len(sample) == 0 {
				proberLog.Debugf("skipping %s: no %s sample", draft, c.DataFormat)
				results = append(results, TrialResult{
					Driver:     driver,
					DataFormat: c.DataFormat,
					API:        c.API,
					Outcome:    TrialSkipped,
				})
				continue
			}
			trials = append(trials, trial{draft: draft, calls: b.calls, sample: sample})
		}
	}

	var (
		found   contextSet
		g       errgroup.Group
		outcome = make([]TrialResult, len(trials))
	)
	if p.config.MaxConcurrency > 0 {
		g.SetLimit(p.config.MaxConcurrency)
	}
	for i, t := range trials {
		g.Go(func() error {
			// Each trial owns its slot in outcome.
			outcome[i] = p.runTrial(ctx, t, &found)
			return nil
		})
	}
	_ = g.Wait()

	report := ProbeReport{
		Contexts: found.snapshot(),
		Trials:   append(results, outcome...),
	}
	proberLog.Infof("probe finished: %d trials, %d contexts", len(trials), len(report.Contexts))
	return report
}

type testOutcome struct {
	count  int32
	status int32
	descs  []AdapterDesc
	panic  any
}

func (p *Prober) runTrial(ctx context.Context, t trial, found *contextSet) TrialResult {
	res := TrialResult{
		Driver:     t.draft.Driver,
		DataFormat: t.draft.DataFormat,
		API:        t.draft.API,
	}
	start := time.Now()

	done := make(chan testOutcome, 1)
	go func() {
		var o testOutcome
		defer func() {
			if r := recover(); r != nil {
				o.panic = r
			}
			done <- o
		}()
		descs := make([]AdapterDesc, p.config.MaxAdapters)
		o.count, o.status = t.calls.Test(descs, t.draft.API, t.draft.DataFormat, t.draft.OutputSharedHandle, t.sample)
		o.descs = descs
	}()

	var timeout <-chan time.Time
	if p.config.TrialTimeout > 0 {
		timer := time.NewTimer(p.config.TrialTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var o testOutcome
	select {
	case o = <-done:
	case <-timeout:
		// The native call cannot be interrupted; its result is discarded.
		res.Outcome = TrialTimedOut
		res.Duration = time.Since(start)
		proberLog.Warnf("trial %s timed out after %s", t.draft, p.config.TrialTimeout)
		return res
	case <-ctx.Done():
		res.Outcome = TrialCanceled
		res.Duration = time.Since(start)
		proberLog.Debugf("trial %s canceled: %v", t.draft, ctx.Err())
		return res
	}
	res.Duration = time.Since(start)

	if o.panic != nil {
		res.Outcome = TrialPanicked
		proberLog.Errorf("trial %s panicked: %v", t.draft, o.panic)
		return res
	}

	res.Status = o.status
	if o.status != 0 {
		res.Outcome = TrialFailed
		proberLog.Debugf("trial %s failed: status %d", t.draft, o.status)
		return res
	}

	n := clampAdapterCount(o.count, len(o.descs), t.draft)
	if n == 0 {
		res.Outcome = TrialNoAdapters
		proberLog.Debugf("trial %s: no adapters", t.draft)
		return res
	}

	res.Outcome = TrialAccepted
	res.Adapters = append([]AdapterDesc(nil), o.descs[:n]...)

	ctxs := make([]DecodeContext, n)
	for i := range ctxs {
		c := t.draft
		c.LUID = o.descs[i].LUID
		ctxs[i] = c
	}
	found.add(ctxs...)
	proberLog.Debugf("trial %s accepted by %d adapters", t.draft, n)
	return res
}

// clampAdapterCount bounds a backend-reported count to the descriptor
// buffer. A count above capacity is a backend contract violation.
func clampAdapterCount(count int32, capacity int, draft DecodeContext) int {
	n := int(count)
	if n > capacity {
		proberLog.Errorf("%s reported %d adapters for a buffer of %d; clamping", draft, n, capacity)
		return capacity
	}
	if n < 0 {
		proberLog.Errorf("%s reported negative adapter count %d", draft, n)
		return 0
	}
	return n
}

func (r TrialResult) String() string {
	return fmt.Sprintf("%s/%s/%s: %s (status %d, %d adapters, %s)",
		r.Driver, r.DataFormat, r.API, r.Outcome, r.Status, len(r.Adapters), r.Duration)
}
