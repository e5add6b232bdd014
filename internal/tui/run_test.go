package tui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/rowfilter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithScriptedKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "type and quit", input: "c\x03"},
		{name: "enter applies the query", input: "c\r\x03"},
		{name: "repeated enter", input: "clean\r\r\r\x03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := livesearch.NewCatalog(rowfilter.NewTable(
				[]string{"title", "author"},
				[][]string{{"Clean Code", "Robert C. Martin"}, {"Refactoring", "Martin Fowler"}},
			))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- Run(ctx, catalog, Options{
					Title:  "Library",
					Delay:  time.Hour,
					Input:  strings.NewReader(tt.input),
					Output: io.Discard,
				})
			}()

			select {
			case err := <-done:
				require.NoError(t, err)
				assert.NoError(t, ctx.Err(), "the program should quit on ctrl+c, not on timeout")
			case <-time.After(10 * time.Second):
				t.Fatal("browse screen did not quit")
			}
		})
	}
}
