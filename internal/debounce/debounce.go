// Package debounce collapses bursts of calls into a single delayed call.
//
// A Debouncer wraps an action. Every Fire cancels the invocation armed by the
// previous Fire (if it has not run yet) and arms a new one for the configured
// delay. When a quiet period of that length passes, the action runs once with
// the arguments of the most recent Fire. Arguments of superseded calls are
// never delivered.
//
//	d, err := debounce.New(func(q string) { table.Filter(q) }, 300*time.Millisecond)
//	if err != nil {
//		return err
//	}
//	d.Fire("clean")
//	d.Fire("clean code") // only this one reaches the action
//
// The delay is a lower bound. Timers run on runtime goroutines, so the action
// must be safe to call from a goroutine other than the one calling Fire.
package debounce

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/conneroisu/shelfsearch/internal/errors"
)

// DefaultDelay is the delay used by the search glue when nothing is configured.
const DefaultDelay = 300 * time.Millisecond

// Timer is a cancelable handle for one scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already started or the timer was already stopped.
	Stop() bool
}

// Scheduler arms callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type runtimeScheduler struct{}

func (runtimeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RuntimeScheduler schedules with time.AfterFunc.
var RuntimeScheduler Scheduler = runtimeScheduler{}

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	scheduler Scheduler
}

// WithScheduler replaces the runtime clock, typically with a fake in tests.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// Debouncer delays an action until calls stop arriving for a full delay.
//
// Invariants:
//   - at most one timer is armed at any time
//   - generation increases on every arm, cancel and flush; a timer callback
//     only runs the action if it still owns the current generation
//   - the pending slot is cleared before the action runs
//   - running counts actions that have left the pending slot but not returned
type Debouncer[T any] struct {
	action    func(T)
	delay     time.Duration
	scheduler Scheduler

	mu         sync.Mutex
	timer      Timer
	args       T
	pending    bool
	generation uint64
	running    int
	idle       *sync.Cond
}

// New wraps action in a Debouncer. A negative delay or a nil action is
// rejected with an invalid argument error.
func New[T any](action func(T), delay time.Duration, opts ...Option) (*Debouncer[T], error) {
	if action == nil {
		return nil, errors.NewInvalidArgument("debounce action must not be nil")
	}
	if delay < 0 {
		return nil, errors.NewInvalidArgument("debounce delay must not be negative").
			WithContext("delay", delay.String())
	}

	o := options{scheduler: RuntimeScheduler}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Debouncer[T]{
		action:    action,
		delay:     delay,
		scheduler: o.scheduler,
	}
	d.idle = sync.NewCond(&d.mu)
	return d, nil
}

// Func returns only the trigger of a new Debouncer, for callers that never
// cancel or flush.
func Func[T any](action func(T), delay time.Duration, opts ...Option) (func(T), error) {
	d, err := New(action, delay, opts...)
	if err != nil {
		return nil, err
	}
	return d.Fire, nil
}

// FromMillis converts a configured millisecond count into a delay.
func FromMillis(ms float64) (time.Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, errors.NewInvalidArgument("debounce delay must be a finite number").
			WithContext("delay_ms", fmt.Sprint(ms))
	}
	if ms < 0 {
		return 0, errors.NewInvalidArgument("debounce delay must not be negative").
			WithContext("delay_ms", ms)
	}
	if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, errors.NewInvalidArgument("debounce delay is too large").
			WithContext("delay_ms", ms)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// Fire supersedes any pending invocation and schedules action(args) after
// the delay.
func (d *Debouncer[T]) Fire(args T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.generation++
	gen := d.generation
	d.args = args
	d.pending = true
	d.timer = d.scheduler.AfterFunc(d.delay, func() { d.expire(gen) })
}

// Cancel drops the pending invocation without scheduling another one. It
// reports whether an invocation was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return false
	}
	d.disarm()
	return true
}

// Flush runs the pending invocation now, on the calling goroutine. It
// reports whether an invocation was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	args := d.args
	d.disarm()
	d.running++
	d.mu.Unlock()

	d.run(args)
	return true
}

// Wait blocks until no action is running. A pending invocation that has not
// fired yet is not waited for. Calling Wait from the action deadlocks.
func (d *Debouncer[T]) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.running > 0 {
		d.idle.Wait()
	}
}

// Pending reports whether an invocation is armed.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Delay returns the configured quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}

// disarm clears the pending slot. Callers hold mu.
func (d *Debouncer[T]) disarm() {
	if d.timer != nil {
		d.timer.Stop()
	}
	var zero T
	d.timer = nil
	d.args = zero
	d.pending = false
	d.generation++
}

func (d *Debouncer[T]) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || !d.pending {
		// superseded between the timer firing and acquiring the lock
		d.mu.Unlock()
		return
	}
	args := d.args
	var zero T
	d.timer = nil
	d.args = zero
	d.pending = false
	d.running++
	d.mu.Unlock()

	d.run(args)
}

func (d *Debouncer[T]) run(args T) {
	defer func() {
		d.mu.Lock()
		d.running--
		if d.running == 0 {
			d.idle.Broadcast()
		}
		d.mu.Unlock()
	}()
	d.action(args)
}
