// Package livesearch drives the row filter from a stream of query edits.
//
// A Session belongs to one input source (a terminal, a browser tab). Every
// edit goes through the session's debouncer; once the input has been quiet
// for the configured delay the catalog is filtered with the latest query and
// the Result is handed to the session's sink.
package livesearch

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/logging"
)

// Sink receives results. It is called from the debouncer's timer goroutine
// or from the goroutine calling Refresh.
type Sink func(Result)

// Option configures a Session.
type Option func(*Session)

// WithScheduler sets the clock used by the session's debouncer.
func WithScheduler(s debounce.Scheduler) Option {
	return func(sess *Session) {
		sess.scheduler = s
	}
}

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(sess *Session) {
		if l != nil {
			sess.logger = l
		}
	}
}

// WithID names the session in log output.
func WithID(id string) Option {
	return func(sess *Session) {
		sess.id = id
	}
}

// Session debounces query edits and filters a catalog.
type Session struct {
	catalog   *Catalog
	sink      Sink
	debouncer *debounce.Debouncer[string]
	scheduler debounce.Scheduler
	logger    logging.Logger
	id        string

	mu      sync.Mutex
	last    string
	applied bool
	closed  bool
}

// New creates a session over catalog. Results are delivered to sink.
func New(catalog *Catalog, delay time.Duration, sink Sink, opts ...Option) (*Session, error) {
	if catalog == nil {
		return nil, errors.NewInvalidArgument("live search needs a catalog")
	}
	if sink == nil {
		return nil, errors.NewInvalidArgument("live search needs a result sink")
	}

	s := &Session{
		catalog: catalog,
		sink:    sink,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("livesearch")
	if s.id != "" {
		s.logger = s.logger.With("session", s.id)
	}

	var dopts []debounce.Option
	if s.scheduler != nil {
		dopts = append(dopts, debounce.WithScheduler(s.scheduler))
	}
	d, err := debounce.New(s.apply, delay, dopts...)
	if err != nil {
		return nil, err
	}
	s.debouncer = d

	return s, nil
}

// Input records a query edit. The filter runs once the edits stop for the
// session's delay.
func (s *Session) Input(query string) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.debouncer.Fire(query)
}

// Refresh filters immediately. A pending edit is applied now; otherwise the
// last applied query is re-run, which is what a catalog reload needs.
func (s *Session) Refresh() {
	if s.debouncer.Flush() {
		return
	}
	s.mu.Lock()
	query := s.last
	s.mu.Unlock()
	s.apply(query)
}

// Flush applies a pending edit now. It reports whether one was pending.
func (s *Session) Flush() bool {
	return s.debouncer.Flush()
}

// Wait blocks until a filter that is already running has delivered its
// result. Edits still waiting for the quiet period are not waited for.
func (s *Session) Wait() {
	s.debouncer.Wait()
}

// Cancel drops a pending edit. It reports whether one was pending.
func (s *Session) Cancel() bool {
	return s.debouncer.Cancel()
}

// Close cancels any pending edit and stops further delivery.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debouncer.Cancel()
}

// Pending reports whether an edit is waiting for the quiet period.
func (s *Session) Pending() bool {
	return s.debouncer.Pending()
}

// LastQuery returns the most recently applied query and whether any query
// has been applied yet.
func (s *Session) LastQuery() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.applied
}

// Delay returns the debounce delay.
func (s *Session) Delay() time.Duration {
	return s.debouncer.Delay()
}

// Bind feeds queries from inputs until the channel closes or ctx is done,
// then cancels whatever is still pending.
func (s *Session) Bind(ctx context.Context, inputs <-chan string) error {
	defer s.debouncer.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q, ok := <-inputs:
			if !ok {
				return nil
			}
			s.Input(q)
		}
	}
}

func (s *Session) apply(query string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.last = query
	s.applied = true
	s.mu.Unlock()

	res := s.catalog.Search(query)
	s.logger.Debug(context.Background(), "filter applied",
		"query", logging.SanitizeForLog(query),
		"matched", res.Matched,
		"total", res.Total,
		"skipped", res.Skipped)

	s.sink(res)
}
