package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State of the rescan cycle
type State int

const (
	StateIdle State = iota
	StatePendingRescan
)

func (s State) String() string {
	if s == StatePendingRescan {
		return "pending_rescan"
	}
	return "idle"
}

// ScanFunc runs one augmentation pass
type ScanFunc func(ctx context.Context) error

// EventSource produces page events until ctx is done.
// Run must not close events.
type EventSource interface {
	Run(ctx context.Context, events chan<- Event) error
}

// Config holds the watcher delays and relevance rules
type Config struct {
	Debounce        time.Duration
	NavigationDelay time.Duration
	InitialDelay    time.Duration
	Filter          FilterConfig
}

// Watcher coalesces bursts of page changes into single scans.
// All events share one timer: a new event supersedes the pending one, so a
// quiet period after any number of events runs exactly one scan.
type Watcher struct {
	scan   ScanFunc
	filter *RelevanceFilter
	clock  Clock
	config Config
	logger *zap.Logger

	scanMu sync.Mutex // one scan at a time, across timer goroutines

	mu         sync.Mutex
	state      State
	timer      Timer
	generation uint64
	stopped    bool
	ctx        context.Context
}

// Option configures a Watcher
type Option func(*Watcher)

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(w *Watcher) { w.clock = clock }
}

// New creates a watcher that calls scan after relevant changes
func New(scan ScanFunc, logger *zap.Logger, config Config, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Debounce <= 0 {
		config.Debounce = 450 * time.Millisecond
	}
	if config.NavigationDelay <= 0 {
		config.NavigationDelay = 700 * time.Millisecond
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}

	w := &Watcher{
		scan:   scan,
		filter: NewRelevanceFilter(config.Filter),
		clock:  RealClock,
		config: config,
		logger: logger.Named("watcher"),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleMutations restarts the debounce timer when any mutation is relevant
func (w *Watcher) HandleMutations(mutations []Mutation) bool {
	if !w.filter.Relevant(mutations) {
		return false
	}
	w.Schedule(w.config.Debounce)
	return true
}

// HandleNavigation restarts the timer with the navigation delay
func (w *Watcher) HandleNavigation(nav Navigation) {
	w.logger.Debug("Navigation", zap.String("kind", string(nav.Kind)), zap.String("url", nav.URL))
	w.Schedule(w.config.NavigationDelay)
}

// ScheduleInitial schedules the first scan after the initial delay
func (w *Watcher) ScheduleInitial() {
	w.Schedule(w.config.InitialDelay)
}

// Schedule (re)starts the single rescan timer
func (w *Watcher) Schedule(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.generation++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.state = StatePendingRescan

	generation := w.generation
	w.timer = w.clock.AfterFunc(delay, func() { w.fire(generation) })
}

// State returns the current state
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stop cancels the pending scan. A stopped watcher ignores further events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	w.generation++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.state = StateIdle
}

// Run feeds events from source into the watcher until ctx is done or the
// source fails, then stops the watcher.
func (w *Watcher) Run(ctx context.Context, source EventSource) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	defer w.Stop()

	events := make(chan Event, 16)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return source.Run(gctx, events)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				w.handle(ev)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Watcher) handle(ev Event) {
	if ev.Navigation != nil {
		w.HandleNavigation(*ev.Navigation)
	}
	if len(ev.Mutations) > 0 && w.HandleMutations(ev.Mutations) {
		w.logger.Debug("Relevant change, rescan scheduled", zap.Int("mutations", len(ev.Mutations)))
	}
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// fire runs the scan unless a later event superseded this timer
func (w *Watcher) fire(generation uint64) {
	w.mu.Lock()
	if generation != w.generation || w.stopped {
		w.mu.Unlock()
		return
	}
	w.state = StateIdle
	w.timer = nil
	ctx := w.ctx
	w.mu.Unlock()

	w.scanMu.Lock()
	defer w.scanMu.Unlock()
	if w.isStopped() {
		return
	}
	if err := w.scan(ctx); err != nil {
		w.logger.Warn("Scan failed", zap.Error(err))
	}
}
