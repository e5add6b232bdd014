package testutils

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSchedulerRunsInDeadlineOrder(t *testing.T) {
	s := NewFakeScheduler()
	var fired []string

	s.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	s.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	s.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early-second") })
	assert.Equal(t, 3, s.Armed())

	s.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"early", "early-second"}, fired)
	assert.Equal(t, 200*time.Millisecond, s.Now())
	assert.Equal(t, 1, s.Armed())

	s.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"early", "early-second", "late"}, fired)
	assert.Equal(t, 0, s.Armed())
}

func TestFakeSchedulerStop(t *testing.T) {
	s := NewFakeScheduler()
	fired := false
	timer := s.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	s.Advance(2 * time.Second)
	assert.False(t, fired)

	done := s.AfterFunc(0, func() {})
	s.Advance(0)
	assert.False(t, done.Stop(), "a fired timer cannot be stopped")
}

func TestFakeSchedulerTimerArmedFromCallback(t *testing.T) {
	s := NewFakeScheduler()
	var at []time.Duration

	s.AfterFunc(100*time.Millisecond, func() {
		at = append(at, s.Now())
		s.AfterFunc(50*time.Millisecond, func() { at = append(at, s.Now()) })
	})

	s.Advance(time.Second)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 150 * time.Millisecond}, at)
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "nested/books.yaml", SampleCatalogYAML)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, SampleCatalogYAML, string(data))
}
