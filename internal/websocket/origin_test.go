package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedOrigins(t *testing.T) {
	allowed := AllowedOrigins{"https://library.example.org", "catalog.example.org:8443", ""}

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:8090", true},
		{"http://127.0.0.1:3000", true},
		{"http://[::1]:8090", true},
		{"https://library.example.org", true},
		{"http://library.example.org", false},
		{"https://catalog.example.org:8443", true},
		{"https://catalog.example.org", false},
		{"https://evil.example.com", false},
		{"file://localhost", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, allowed.IsAllowedOrigin(tt.origin))
		})
	}
}

func TestIPLimiterConnections(t *testing.T) {
	l := NewIPLimiter(2, 0)

	assert.True(t, l.Acquire("10.0.0.1"))
	assert.True(t, l.Acquire("10.0.0.1"))
	assert.False(t, l.Acquire("10.0.0.1"))
	assert.True(t, l.Acquire("10.0.0.2"))
	assert.Equal(t, 2, l.Connections("10.0.0.1"))

	l.Release("10.0.0.1")
	assert.True(t, l.Acquire("10.0.0.1"))

	l.Release("10.0.0.2")
	l.Release("10.0.0.2")
	assert.Equal(t, 0, l.Connections("10.0.0.2"))
}

func TestIPLimiterMessages(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPLimiter(0, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.AllowMessage("10.0.0.1"))
	}
	assert.False(t, l.AllowMessage("10.0.0.1"))
	assert.True(t, l.AllowMessage("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, l.AllowMessage("10.0.0.1"))
}

func TestIPLimiterDisabled(t *testing.T) {
	l := NewIPLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Acquire("10.0.0.1"))
		assert.True(t, l.AllowMessage("10.0.0.1"))
	}
}
