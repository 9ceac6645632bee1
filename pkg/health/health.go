// Package health serves the /livez and /readyz probes of the storefront API.
//
// Every probe runs on its own ticker. A probe flips to failing only after
// FailureThreshold consecutive errors and back to passing after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// CheckFunc reports nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a probe contributes to.
type Kind int

const (
	// Liveness probes fail /livez; the orchestrator restarts the process.
	Liveness Kind = iota
	// Readiness probes fail /readyz; traffic is routed elsewhere.
	Readiness
)

// ProbeOptions tunes a single probe.
type ProbeOptions struct {
	Timeout          time.Duration
	FailureThreshold int
	SuccessThreshold int
}

func (o ProbeOptions) withDefaults() ProbeOptions {
	if o.Timeout <= 0 {
		o.Timeout = time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 1
	}
	return o
}

// probe is driven by a single goroutine; passing and lastErr are read from
// HTTP handlers.
type probe struct {
	name  string
	kind  Kind
	opts  ProbeOptions
	check CheckFunc

	passing atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.opts.FailureThreshold {
			p.passing.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.opts.SuccessThreshold {
		p.passing.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.passing.Load() {
		return "", false
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error(), true
	}
	return "failing", true
}

// Checker owns the registered probes and the manual readiness gate.
type Checker struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Checker that reports not ready until SetReady(true).
func New() *Checker {
	return &Checker{}
}

// Register adds a probe. Probes start out passing.
func (c *Checker) Register(kind Kind, name string, opts ProbeOptions, check CheckFunc) {
	p := &probe{name: name, kind: kind, opts: opts.withDefaults(), check: check}
	p.passing.Store(true)

	c.mu.Lock()
	c.probes = append(c.probes, p)
	c.mu.Unlock()
}

// Start runs every probe once immediately and then every interval, until
// ctx is done or Stop is called.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	probes := append([]*probe(nil), c.probes...)
	c.mu.Unlock()

	for _, p := range probes {
		go loop(ctx, p, interval)
	}
}

func loop(ctx context.Context, p *probe, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.run(ctx)
		}
	}
}

// Stop halts the probe goroutines. Safe to call more than once.
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// SetReady opens or closes the readiness gate. It is closed at startup and
// again when shutdown begins.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness probes pass.
func (c *Checker) IsReady() bool {
	return c.ready.Load() && len(c.failures(Readiness)) == 0
}

func (c *Checker) failures(kind Kind) map[string]string {
	c.mu.RLock()
	probes := append([]*probe(nil), c.probes...)
	c.mu.RUnlock()

	out := map[string]string{}
	for _, p := range probes {
		if p.kind != kind {
			continue
		}
		if msg, failed := p.failure(); failed {
			out[p.name] = msg
		}
	}
	return out
}

// Live serves /livez.
func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, c.failures(Liveness))
}

// Ready serves /readyz.
func (c *Checker) Ready(w http.ResponseWriter, _ *http.Request) {
	failures := c.failures(Readiness)
	if !c.ready.Load() {
		failures["gate"] = "not accepting traffic"
	}
	writeStatus(w, failures)
}

// Mount registers both endpoints on r.
func (c *Checker) Mount(r chi.Router) {
	r.Get("/livez", c.Live)
	r.Get("/readyz", c.Ready)
}

// writeStatus renders {"status":"ok"} or
// {"status":"unhealthy","checks":{name:error}} with 503.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
