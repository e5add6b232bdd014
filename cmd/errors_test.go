package cmd

import (
	"fmt"
	"os"
	"testing"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("boom"), ""},
		{
			"missing table",
			fmt.Errorf("loading catalog: %w", errors.ErrTableNotFound("loans")),
			"shelfsearch tables",
		},
		{"missing column", errors.ErrColumnNotFound("isbn"), "--columns"},
		{
			"unsupported format",
			errors.NewSourceError(errors.ErrCodeSourceUnsupported, "unsupported format", nil),
			"--format yaml",
		},
		{
			"unreadable source",
			fmt.Errorf("loading catalog: %w", errors.WrapSource(os.ErrPermission, "books.csv", "read source")),
			"check --source",
		},
		{
			"bad configuration",
			fmt.Errorf("loading configuration: %w", errors.WrapConfig(fmt.Errorf("port out of range"), "invalid configuration")),
			"config validate",
		},
		{"negative delay", errors.NewInvalidArgument("debounce delay must not be negative"), "--delay-ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := errorHint(tt.err)
			if tt.want == "" {
				assert.Empty(t, hint)
				return
			}
			assert.Contains(t, hint, tt.want)
		})
	}
}
