// Package pagination holds the current page of a list view and throttles page changes.
//
// A page change that arrives within the cool-down of the last accepted change is
// dropped without error, so a double click on "next" moves one page. The throttle
// is by time, not by value.
package pagination

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultCooldown is the minimum gap between two accepted page changes.
const DefaultCooldown = 500 * time.Millisecond

// ScrollHook runs right before the page moves from one page to another.
type ScrollHook func(from, to int)

// Controller tracks the current page and its bounds.
type Controller struct {
	mu         sync.Mutex
	current    int
	totalPages int

	cooldown      time.Duration
	limiter       *rate.Limiter
	clock         clock.Clock
	prepareScroll ScrollHook
	log           *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithCooldown sets the cool-down window. Zero or less disables throttling.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithPrepareScroll installs the hook run before every accepted page change.
func WithPrepareScroll(hook ScrollHook) Option {
	return func(c *Controller) { c.prepareScroll = hook }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Controller on page 1 with a single page.
func New(opts ...Option) *Controller {
	c := &Controller{
		current:    1,
		totalPages: 1,
		cooldown:   DefaultCooldown,
		clock:      clock.New(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	limit := rate.Inf
	if c.cooldown > 0 {
		limit = rate.Every(c.cooldown)
	}
	c.limiter = rate.NewLimiter(limit, 1)
	return c
}

// ChangePage moves to page n and reports whether it did.
//
// Pages outside 1..TotalPages and the current page are ignored and do not use
// up the cool-down. A change inside the cool-down window is dropped.
func (c *Controller) ChangePage(n int) bool {
	c.mu.Lock()
	from := c.current
	if n < 1 || n > c.totalPages || n == from {
		c.mu.Unlock()
		return false
	}
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		c.mu.Unlock()
		c.log.Debug("page change dropped inside cool-down",
			zap.Int("from", from),
			zap.Int("to", n),
			zap.Duration("cooldown", c.cooldown),
		)
		return false
	}
	hook := c.prepareScroll
	c.mu.Unlock()

	if hook != nil {
		hook(from, n)
	}

	c.mu.Lock()
	c.current = n
	c.mu.Unlock()
	return true
}

// Next moves one page forward.
func (c *Controller) Next() bool {
	return c.ChangePage(c.Current() + 1)
}

// Prev moves one page back.
func (c *Controller) Prev() bool {
	return c.ChangePage(c.Current() - 1)
}

// Jump sets the page without the cool-down or the scroll hook. It is used when the
// page follows from something other than a pagination click, such as a new search.
func (c *Controller) Jump(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.current = n
	if c.totalPages < n {
		c.totalPages = n
	}
	c.mu.Unlock()
}

// Reset returns to page 1.
func (c *Controller) Reset() {
	c.Jump(1)
}

// SetTotalPages updates the upper bound from the latest result. A value below 1
// is stored as 1; an empty list still has a first page.
func (c *Controller) SetTotalPages(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.totalPages = n
	c.mu.Unlock()
}

// Current returns the current page.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// TotalPages returns the current upper bound.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// HasNext reports whether a next page exists.
func (c *Controller) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current < c.totalPages
}

// HasPrev reports whether a previous page exists.
func (c *Controller) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current > 1
}
