package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/metrics"
)

type Status int

const (
	StatusPending Status = iota
	StatusComplete
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Snapshot is the view of a polled collection after one applied fetch.
// After a failed cycle that follows a good one, Status stays complete, Value holds the
// last good value and Err holds the failure.
type Snapshot[T any] struct {
	Status    Status
	Value     T
	Err       error
	Seq       uint64
	UpdatedAt time.Time
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

type pollerSettings struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type PollerOption func(*pollerSettings)

func WithPollMetrics(m *metrics.Metrics) PollerOption {
	return func(s *pollerSettings) {
		s.metrics = m
	}
}

func WithPollLogger(logger *slog.Logger) PollerOption {
	return func(s *pollerSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Poller is a lazy, reference-counted broadcast of a periodically fetched value.
// The first subscriber starts the loop; the loop stops when the last subscriber's context ends.
// Fetches in flight at that point run to completion and their results are dropped.
type Poller[T any] struct {
	name     string
	fetch    FetchFunc[T]
	interval time.Duration
	settings pollerSettings

	mu         sync.Mutex
	subs       map[uint64]chan Snapshot[T]
	nextSubID  uint64
	cancel     context.CancelFunc
	refresh    chan struct{}
	current    Snapshot[T]
	hasValue   bool
	dispatched uint64
	applied    uint64
}

func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], opts ...PollerOption) *Poller[T] {
	if interval <= 0 {
		interval = time.Second
	}
	settings := pollerSettings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Poller[T]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		settings: settings,
		subs:     map[uint64]chan Snapshot[T]{},
	}
}

func (p *Poller[T]) Name() string {
	return p.name
}

func (p *Poller[T]) Interval() time.Duration {
	return p.interval
}

// Subscribe returns a channel carrying the latest snapshot. A slow reader only
// misses intermediate snapshots. The channel is closed once ctx is done.
func (p *Poller[T]) Subscribe(ctx context.Context) <-chan Snapshot[T] {
	ch, _ := p.subscribe(ctx)
	return ch
}

// subscribe also reports whether this subscription started the loop.
func (p *Poller[T]) subscribe(ctx context.Context) (<-chan Snapshot[T], bool) {
	ch := make(chan Snapshot[T], 1)

	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = ch
	if p.current.Status != StatusPending {
		ch <- p.current
	}
	started := p.cancel == nil
	if started {
		p.start()
	}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.unsubscribe(id)
	}()

	return ch, started
}

// Subscribers reports how many subscriptions are live.
func (p *Poller[T]) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Running reports whether the polling loop is active.
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller[T]) Get() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Refresh asks a running loop for an out-of-cycle fetch. It does nothing without subscribers.
func (p *Poller[T]) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refresh == nil {
		return
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Next waits for the first snapshot applied after the call. A loop that is already
// running is asked for an out-of-cycle fetch instead of waiting for its ticker.
func (p *Poller[T]) Next(ctx context.Context) (Snapshot[T], error) {
	p.mu.Lock()
	after := p.applied
	p.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, started := p.subscribe(subCtx)
	if !started {
		p.Refresh()
	}
	for {
		select {
		case <-ctx.Done():
			return Snapshot[T]{}, ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return Snapshot[T]{}, ctx.Err()
			}
			if snap.Seq > after {
				return snap, nil
			}
		}
	}
}

// Load returns the value of the next applied snapshot, or the error of that cycle.
func (p *Poller[T]) Load(ctx context.Context) (T, error) {
	snap, err := p.Next(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if snap.Err != nil {
		var zero T
		return zero, snap.Err
	}
	return snap.Value, nil
}

// start must be called with mu held.
func (p *Poller[T]) start() {
	ctx, cancel := context.WithCancel(context.Background())
	refresh := make(chan struct{}, 1)
	p.cancel = cancel
	p.refresh = refresh

	p.settings.logger.Debug("start polling", "collection", p.name, "interval", p.interval)
	go p.run(ctx, refresh)
}

func (p *Poller[T]) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.subs[id]
	if !ok {
		return
	}
	delete(p.subs, id)
	close(ch)

	if len(p.subs) == 0 && p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.refresh = nil
		p.settings.logger.Debug("stop polling", "collection", p.name)
	}
}

func (p *Poller[T]) run(ctx context.Context, refresh <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.dispatch(ctx)
		case <-refresh:
			p.dispatch(ctx)
		}
	}
}

// dispatch starts one fetch without waiting for earlier ones to finish. The fetch does
// not see the loop's cancellation; apply drops its result once the loop has stopped.
func (p *Poller[T]) dispatch(ctx context.Context) {
	p.mu.Lock()
	p.dispatched++
	seq := p.dispatched
	p.mu.Unlock()

	go func() {
		value, err := p.fetch(context.WithoutCancel(ctx))
		p.apply(ctx, seq, value, err)
	}()
}

func (p *Poller[T]) apply(ctx context.Context, seq uint64, value T, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if seq <= p.applied {
		p.settings.metrics.PollCycle(p.name, "stale")
		return
	}
	p.applied = seq

	next := p.current
	next.Seq = seq
	if err != nil {
		next.Err = err
		if !p.hasValue {
			next.Status = StatusError
		}
		p.settings.metrics.PollCycle(p.name, "error")
		p.settings.logger.Debug("poll cycle failed", "collection", p.name, "seq", seq, "error", err)
	} else {
		next = Snapshot[T]{Status: StatusComplete, Value: value, Seq: seq, UpdatedAt: time.Now()}
		p.hasValue = true
		p.settings.metrics.PollCycle(p.name, "ok")
	}
	p.current = next

	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
