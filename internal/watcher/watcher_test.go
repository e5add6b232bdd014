package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/testutils"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100 * time.Millisecond)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Equal(t, 100*time.Millisecond, watcher.debouncer.Delay())
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestNewFileWatcherRejectsNegativeDelay(t *testing.T) {
	_, err := NewFileWatcher(-time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

type batches struct {
	mu  sync.Mutex
	got [][]ChangeEvent
}

func (b *batches) handler(events []ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, events)
	return nil
}

func (b *batches) all() [][]ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]ChangeEvent(nil), b.got...)
}

func newFakeWatcher(t *testing.T) (*FileWatcher, *batches, *testutils.FakeScheduler) {
	t.Helper()
	clock := testutils.NewFakeScheduler()
	fw, err := NewFileWatcher(300*time.Millisecond, WithScheduler(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Stop() })

	b := &batches{}
	fw.AddHandler(b.handler)
	return fw, b, clock
}

func TestBurstIsDeliveredOnce(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)

	for i := 0; i < 5; i++ {
		fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Write})
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, b.all())

	clock.Advance(200 * time.Millisecond)
	got := b.all()
	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, "/data/books.yaml", got[0][0].Path)
	assert.Equal(t, EventTypeModified, got[0][0].Type)
}

func TestBatchDeduplicatesAndKeepsOrder(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)

	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/b.csv", Op: fsnotify.Create})
	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/a.csv", Op: fsnotify.Write})
	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/b.csv", Op: fsnotify.Remove})
	clock.Advance(300 * time.Millisecond)

	got := b.all()
	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, "/data/b.csv", got[0][0].Path)
	assert.Equal(t, EventTypeDeleted, got[0][0].Type)
	assert.Equal(t, "/data/a.csv", got[0][1].Path)
}

func TestSeparateQuietPeriodsDeliverSeparately(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)

	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Write})
	clock.Advance(300 * time.Millisecond)
	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Write})
	clock.Advance(300 * time.Millisecond)

	assert.Len(t, b.all(), 2)
}

func TestChmodAndFilteredEventsAreIgnored(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)
	fw.AddFilter(ExtFilter(".yaml", ".csv"))
	fw.AddFilter(NoEditorTempFilter)

	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Chmod})
	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/notes.txt", Op: fsnotify.Write})
	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/.books.yaml.swp", Op: fsnotify.Write})
	clock.Advance(time.Second)

	assert.Empty(t, b.all())
	assert.Equal(t, 0, clock.Armed())
}

func TestHandlerErrorDoesNotStopOthers(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)
	fw.AddHandler(func([]ChangeEvent) error { return fmt.Errorf("reload failed") })
	second := &batches{}
	fw.AddHandler(second.handler)

	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Write})
	clock.Advance(300 * time.Millisecond)

	assert.Len(t, b.all(), 1)
	assert.Len(t, second.all(), 1)
}

func TestStopDropsPendingChanges(t *testing.T) {
	fw, b, clock := newFakeWatcher(t)

	fw.handleFsnotifyEvent(fsnotify.Event{Name: "/data/books.yaml", Op: fsnotify.Write})
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
	clock.Advance(time.Second)

	assert.Empty(t, b.all())
}

func TestWatchFiltersToFile(t *testing.T) {
	dir := t.TempDir()
	catalog := testutils.WriteFile(t, dir, "books.yaml", testutils.SampleCatalogYAML)

	fw, b, clock := newFakeWatcher(t)
	require.NoError(t, fw.Watch(catalog))

	fw.handleFsnotifyEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write})
	fw.handleFsnotifyEvent(fsnotify.Event{Name: catalog, Op: fsnotify.Write})
	clock.Advance(300 * time.Millisecond)

	got := b.all()
	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, catalog, got[0][0].Path)
	assert.Positive(t, got[0][0].Size)
}

func TestWatchRejectsEmptyPath(t *testing.T) {
	fw, _, _ := newFakeWatcher(t)
	assert.Error(t, fw.Watch("  "))
	assert.Error(t, fw.AddPath(""))
}

func TestWatchRealFile(t *testing.T) {
	dir := t.TempDir()
	catalog := testutils.WriteFile(t, dir, "books.yaml", testutils.SampleCatalogYAML)

	fw, err := NewFileWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	defer fw.Stop()

	events := make(chan []ChangeEvent, 4)
	fw.AddHandler(func(evs []ChangeEvent) error {
		events <- evs
		return nil
	})
	require.NoError(t, fw.Watch(catalog))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(catalog, []byte(testutils.SampleCatalogYAML+"\n"), 0644))
	}
	// unrelated file in the same directory
	testutils.WriteFile(t, dir, "loans.yaml", "[]")

	select {
	case evs := <-events:
		require.NotEmpty(t, evs)
		for _, ev := range evs {
			assert.Equal(t, catalog, ev.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestFilters(t *testing.T) {
	yamlOnly := ExtFilter(".yaml", ".YML")
	assert.True(t, yamlOnly("books.yaml"))
	assert.True(t, yamlOnly("books.yml"))
	assert.False(t, yamlOnly("books.json"))

	assert.True(t, NoEditorTempFilter("books.yaml"))
	assert.False(t, NoEditorTempFilter("books.yaml~"))
	assert.False(t, NoEditorTempFilter(".#books.yaml"))
	assert.False(t, NoEditorTempFilter(".books.yaml.swp"))

	assert.True(t, NoGitFilter("data/books.yaml"))
	assert.False(t, NoGitFilter(".git/HEAD"))
	assert.False(t, NoGitFilter("repo/.git/index"))
}
