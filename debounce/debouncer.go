// Package debounce separates what the user typed from what a list query uses.
//
// The typed value follows every keystroke. The committed value follows only after
// the input has been quiet for the delay, and only when it changed. Input shorter
// than the minimum length commits as the empty string.
package debounce

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/listquery"
)

// DefaultDelay is the quiet interval before a value is committed.
const DefaultDelay = 300 * time.Millisecond

// CommitFunc receives every new committed value.
type CommitFunc func(committed string)

// Debouncer buffers free-text input.
type Debouncer struct {
	mu        sync.Mutex
	typed     string
	committed string
	timer     *clock.Timer
	gen       uint64

	delay     time.Duration
	minLength int
	clock     clock.Clock
	onCommit  CommitFunc
	log       *zap.Logger
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithDelay sets the quiet interval.
func WithDelay(delay time.Duration) Option {
	return func(d *Debouncer) {
		if delay > 0 {
			d.delay = delay
		}
	}
}

// WithMinLength sets how many characters a value needs before it is committed as is.
func WithMinLength(n int) Option {
	return func(d *Debouncer) {
		if n >= 0 {
			d.minLength = n
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(d *Debouncer) {
		if clk != nil {
			d.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Debouncer) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a Debouncer that calls onCommit with each new committed value.
func New(onCommit CommitFunc, opts ...Option) *Debouncer {
	d := &Debouncer{
		delay:     DefaultDelay,
		minLength: listquery.SearchMinLength,
		clock:     clock.New(),
		onCommit:  onCommit,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input records raw as the typed value and restarts the quiet interval.
func (d *Debouncer) Input(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.typed = raw
	d.gen++
	gen := d.gen
	d.stopLocked()
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush commits the typed value now, as an Enter key would.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.gen++
	d.stopLocked()
	d.mu.Unlock()
	d.commit()
}

// Cancel drops a pending commit. The typed value is kept.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.stopLocked()
}

// Reset clears both values without calling the commit callback.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.stopLocked()
	d.typed = ""
	d.committed = ""
}

// Typed returns the last raw input.
func (d *Debouncer) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.typed
}

// Committed returns the value the list query currently uses.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Pending reports whether a commit is waiting for the quiet interval.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.commit()
}

func (d *Debouncer) commit() {
	d.mu.Lock()
	value := listquery.EffectiveSearch(d.typed, d.minLength)
	if value == d.committed {
		d.mu.Unlock()
		return
	}
	d.committed = value
	cb := d.onCommit
	d.mu.Unlock()

	d.log.Debug("search committed", zap.String("value", value))
	if cb != nil {
		cb(value)
	}
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
