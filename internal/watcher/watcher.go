// Package watcher reports catalog file changes in debounced batches.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches for file changes and groups bursts of events.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debounce.Debouncer[struct{}]
	logger    logging.Logger
	filters   []FileFilter
	handlers  []ChangeHandler
	files     map[string]bool
	mutex     sync.RWMutex

	pendingMu sync.Mutex
	pending   map[string]ChangeEvent
	order     []string

	stopOnce sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles one debounced batch of changes.
type ChangeHandler func(events []ChangeEvent) error

// Option configures a FileWatcher.
type Option func(*config)

type config struct {
	logger    logging.Logger
	scheduler debounce.Scheduler
}

// WithLogger sets the watcher logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithScheduler replaces the clock behind the debounce delay.
func WithScheduler(s debounce.Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// NewFileWatcher creates a watcher that delivers changes once no new event
// has arrived for debounceDelay.
func NewFileWatcher(debounceDelay time.Duration, opts ...Option) (*FileWatcher, error) {
	cfg := config{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	fw := &FileWatcher{
		logger:  cfg.logger.WithComponent("watcher"),
		pending: make(map[string]ChangeEvent),
	}

	var dopts []debounce.Option
	if cfg.scheduler != nil {
		dopts = append(dopts, debounce.WithScheduler(cfg.scheduler))
	}
	d, err := debounce.New(func(struct{}) { fw.flush() }, debounceDelay, dopts...)
	if err != nil {
		return nil, err
	}
	fw.debouncer = d

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	fw.watcher = watcher

	return fw, nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a directory.
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := cleanPath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return fw.watcher.Add(cleanPath)
}

// Watch follows a single file. The parent directory is watched so that
// editors which save by writing a temporary file and renaming it over the
// original keep being noticed; events for other files are filtered out.
func (fw *FileWatcher) Watch(path string) error {
	file, err := cleanPath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if err := fw.watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(file), err)
	}
	fw.mutex.Lock()
	if fw.files == nil {
		fw.files = make(map[string]bool)
	}
	fw.files[file] = true
	fw.mutex.Unlock()
	return nil
}

// watches reports whether path passes the Watch set. Callers hold mutex.
func (fw *FileWatcher) watches(path string) bool {
	if len(fw.files) == 0 {
		return true
	}
	abs, err := filepath.Abs(path)
	return err == nil && fw.files[abs]
}

func cleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	return abs, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.watchLoop(ctx)
	return nil
}

// Stop drops undelivered changes and closes the underlying watcher.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.Cancel()
		fw.pendingMu.Lock()
		fw.pending = make(map[string]ChangeEvent)
		fw.order = nil
		fw.pendingMu.Unlock()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			fw.debouncer.Cancel()
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "file watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	fw.mutex.RLock()
	filters := fw.filters
	watched := fw.watches(event.Name)
	fw.mutex.RUnlock()

	if !watched {
		return
	}
	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	info, err := os.Stat(event.Name)
	var modTime time.Time
	var size int64

	if err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	fw.record(ChangeEvent{
		Type:    eventType,
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	})
}

// record adds a change to the pending batch and restarts the quiet period.
// The latest event per path wins; paths keep first-seen order.
func (fw *FileWatcher) record(ev ChangeEvent) {
	fw.pendingMu.Lock()
	if _, seen := fw.pending[ev.Path]; !seen {
		fw.order = append(fw.order, ev.Path)
	}
	fw.pending[ev.Path] = ev
	fw.pendingMu.Unlock()

	fw.debouncer.Fire(struct{}{})
}

func (fw *FileWatcher) flush() {
	fw.pendingMu.Lock()
	if len(fw.order) == 0 {
		fw.pendingMu.Unlock()
		return
	}
	events := make([]ChangeEvent, 0, len(fw.order))
	for _, p := range fw.order {
		events = append(events, fw.pending[p])
	}
	fw.pending = make(map[string]ChangeEvent)
	fw.order = nil
	fw.pendingMu.Unlock()

	fw.mutex.RLock()
	handlers := fw.handlers
	fw.mutex.RUnlock()

	ctx := context.Background()
	fw.logger.Debug(ctx, "delivering file changes", "count", len(events))
	for _, handler := range handlers {
		if err := handler(events); err != nil {
			fw.logger.Error(ctx, err, "file watcher handler failed")
		}
	}
}

// ExtFilter accepts paths with one of the given extensions.
func ExtFilter(exts ...string) FileFilter {
	return func(path string) bool {
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}
}

// NoEditorTempFilter rejects swap and backup files written by editors.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, ".#"),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return false
	}
	return true
}

// NoGitFilter rejects paths inside a .git directory.
func NoGitFilter(path string) bool {
	p := filepath.ToSlash(path)
	return !strings.HasPrefix(p, ".git/") && !strings.Contains(p, "/.git/")
}
