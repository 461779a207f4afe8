// Package display renders an ErrorContext into a Response through an ordered
// chain of strategies that always ends in a fallback which cannot fail.
package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// Next continues the walk with the strategies after the current one.
type Next func(resp models.Response) models.Response

// Strategy is one candidate renderer.
//
// CanHandle must only consult the ErrorContext (typically its request
// snapshot) and configuration fixed at construction. Render either returns
// the finished response or defers to next. Strategies hold no state between
// invocations.
//
// A decorator that fails after calling next yields the response next
// returned; the strategies after it are not walked again. Time spent inside
// next does not count against the decorator's render timeout.
type Strategy interface {
	Name() string
	CanHandle(ec *models.ErrorContext) bool
	Render(ec *models.ErrorContext, resp models.Response, next Next) (models.Response, error)
}

// Terminal is a strategy that always applies and never fails. Only Fallback
// implements it.
type Terminal interface {
	Strategy
	terminal()
}

var (
	// ErrEmptyChain is returned by NewChain when no strategies are given.
	ErrEmptyChain = errors.New("display chain has no strategies")
	// ErrNoTerminal is returned by NewChain when the last strategy is not a
	// terminal fallback.
	ErrNoTerminal = errors.New("display chain must end with a terminal fallback")

	errChainExhausted = errors.New("display chain exhausted without a response")
)

// Chain walks strategies in configured order. It is read-only after
// construction and safe for concurrent use.
type Chain struct {
	strategies    []Strategy
	terminal      Terminal
	renderTimeout time.Duration
	logger        *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithRenderTimeout bounds each CanHandle/Render call, excluding time spent
// in next. A strategy that runs longer is treated as failed and the walk
// moves on. Zero disables the bound.
func WithRenderTimeout(d time.Duration) ChainOption {
	return func(c *Chain) { c.renderTimeout = d }
}

// WithLogger sets the logger used to report skipped strategies.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChain validates and builds a chain. The last strategy must be a
// Terminal.
func NewChain(strategies []Strategy, opts ...ChainOption) (*Chain, error) {
	if len(strategies) == 0 {
		return nil, ErrEmptyChain
	}
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("display strategy %d is nil", i)
		}
	}
	term, ok := strategies[len(strategies)-1].(Terminal)
	if !ok {
		return nil, fmt.Errorf("%w (last is %q)", ErrNoTerminal, strategies[len(strategies)-1].Name())
	}

	c := &Chain{
		strategies: append([]Strategy(nil), strategies...),
		terminal:   term,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Names lists the strategies in walk order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name()
	}
	return out
}

// Terminal returns the fallback that ends the chain.
func (c *Chain) Terminal() Terminal { return c.terminal }

// Execute renders ec starting from resp. It always returns a response: a
// failing strategy is skipped and the walk continues with the next one.
func (c *Chain) Execute(ec *models.ErrorContext, resp models.Response) models.Response {
	return c.walk(0, ec, resp)
}

func (c *Chain) walk(from int, ec *models.ErrorContext, resp models.Response) models.Response {
	for i := from; i < len(c.strategies); i++ {
		s := c.strategies[i]
		limit := c.renderTimeout
		if _, ok := s.(Terminal); ok {
			limit = 0
		}

		handles, err := canHandle(s, ec, limit)
		if err != nil {
			c.skip(s, ec, "can_handle", err)
			continue
		}
		if !handles {
			continue
		}

		out, downstream, err := c.render(i, ec, resp, limit)
		if err != nil {
			c.skip(s, ec, "render", err)
			if downstream != nil {
				return *downstream
			}
			continue
		}
		return out
	}
	// NewChain guarantees a terminal at the end, so getting here means a
	// terminal misbehaved. The handler recovers this into the static page.
	panic(errChainExhausted)
}

func (c *Chain) skip(s Strategy, ec *models.ErrorContext, stage string, err error) {
	c.logger.Warn("display strategy skipped",
		"strategy", s.Name(),
		"stage", stage,
		"error_id", ec.ID(),
		"error", err.Error(),
	)
}

func canHandle(s Strategy, ec *models.ErrorContext, limit time.Duration) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	r := bounded(limit, func() (res result) {
		defer func() {
			if p := recover(); p != nil {
				res = result{err: panicError(p)}
			}
		}()
		return result{ok: s.CanHandle(ec)}
	}, result{err: errTimeout(limit)})
	return r.ok, r.err
}

// render runs strategy i. The deadline is paused while next walks the rest
// of the chain and whatever next produced is returned alongside, so a
// failed decorator never causes the remaining strategies to run twice.
func (c *Chain) render(i int, ec *models.ErrorContext, resp models.Response, limit time.Duration) (models.Response, *models.Response, error) {
	s := c.strategies[i]
	dl := newDeadline(limit)
	defer dl.stop()

	var (
		mu         sync.Mutex
		downstream *models.Response
	)
	next := func(r models.Response) models.Response {
		if !dl.pause() {
			return r
		}
		defer dl.resume()
		out := c.walk(i+1, ec, r)
		mu.Lock()
		downstream = &out
		mu.Unlock()
		return out
	}

	type result struct {
		resp models.Response
		err  error
	}
	call := func() (res result) {
		defer func() {
			if p := recover(); p != nil {
				res = result{err: panicError(p)}
			}
		}()
		out, err := s.Render(ec, resp, next)
		return result{resp: out, err: err}
	}

	var r result
	if dl == nil {
		r = call()
	} else {
		done := make(chan result, 1)
		go func() { done <- call() }()
		select {
		case r = <-done:
		case <-dl.expired():
			r = result{err: errTimeout(limit)}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return r.resp, downstream, r.err
}

// deadline is a render timer that can be paused.
type deadline struct {
	mu     sync.Mutex
	timer  *time.Timer
	until  time.Time
	left   time.Duration
	paused int
	fired  bool
	done   chan struct{}
}

// newDeadline returns nil for d <= 0; a nil deadline never expires.
func newDeadline(d time.Duration) *deadline {
	if d <= 0 {
		return nil
	}
	dl := &deadline{until: time.Now().Add(d), done: make(chan struct{})}
	dl.timer = time.AfterFunc(d, dl.expire)
	return dl
}

func (dl *deadline) expire() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.paused > 0 || dl.fired {
		return
	}
	dl.fired = true
	close(dl.done)
}

func (dl *deadline) expired() <-chan struct{} {
	if dl == nil {
		return nil
	}
	return dl.done
}

// pause stops the clock. It reports false once the deadline has passed.
func (dl *deadline) pause() bool {
	if dl == nil {
		return true
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.fired {
		return false
	}
	dl.paused++
	if dl.paused == 1 {
		dl.timer.Stop()
		dl.left = time.Until(dl.until)
	}
	return true
}

func (dl *deadline) resume() {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.paused--
	if dl.paused == 0 {
		dl.until = time.Now().Add(dl.left)
		dl.timer.Reset(dl.left)
	}
}

func (dl *deadline) stop() {
	if dl != nil {
		dl.timer.Stop()
	}
}

// bounded runs fn, giving up after d and returning onTimeout. The abandoned
// goroutine finishes in the background and its result is dropped.
func bounded[T any](d time.Duration, fn func() T, onTimeout T) T {
	if d <= 0 {
		return fn()
	}
	done := make(chan T, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case v := <-done:
		return v
	case <-timer.C:
		return onTimeout
	}
}

func errTimeout(d time.Duration) error {
	return fmt.Errorf("timed out after %s", d)
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %s", format.Inline(p))
}
