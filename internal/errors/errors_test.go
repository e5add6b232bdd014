package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "code and message",
			err:      NewInvalidArgument("delay must not be negative"),
			contains: []string{"[ERR_INVALID_ARGUMENT]", "delay must not be negative"},
		},
		{
			name: "component path and cause",
			err: NewSourceError(ErrCodeSourceRead, "parse failed", fmt.Errorf("bad row")).
				WithComponent("source").
				WithPath("books.csv"),
			contains: []string{"component:source", "books.csv", "parse failed", ": bad row"},
		},
		{
			name:     "context is rendered in key order",
			err:      NewValidationError("ERR_X", "bad").WithContext("b", 2).WithContext("a", 1),
			contains: []string{"(a=1, b=2)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := NewIOError(ErrCodeFileNotFound, "catalog missing", cause)

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, &Error{Type: ErrorTypeIO, Code: ErrCodeFileNotFound}))
	assert.False(t, errors.Is(err, &Error{Type: ErrorTypeIO, Code: ErrCodeSourceRead}))

	wrapped := fmt.Errorf("loading: %w", err)
	var target *Error
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, ErrCodeFileNotFound, target.Code)
}

func TestPredicates(t *testing.T) {
	invalid := fmt.Errorf("configure: %w", NewInvalidArgument("negative"))
	assert.True(t, IsInvalidArgument(invalid))
	assert.False(t, IsSourceError(invalid))

	src := NewSourceError(ErrCodeSourceUnsupported, "unsupported format", nil)
	assert.True(t, IsSourceError(src))
	assert.False(t, IsInvalidArgument(src))

	cfg := WrapConfig(NewInvalidArgument("delay"), "search config")
	assert.True(t, IsConfigError(cfg))
	assert.True(t, IsInvalidArgument(cfg), "codes deeper in the chain are still found")

	assert.False(t, IsInvalidArgument(nil))
	assert.False(t, IsInvalidArgument(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeSourceRead, "ignored"))

	inner := NewValidationError("ERR_INNER", "inner").WithComponent("rowfilter").WithPath("a.yaml")
	outer := Wrap(inner, ErrorTypeSource, ErrCodeSourceRead, "outer")
	require.NotNil(t, outer)
	assert.Equal(t, "rowfilter", outer.Component)
	assert.Equal(t, "a.yaml", outer.Path)
	assert.Same(t, inner, outer.Unwrap())

	plain := WrapSource(errors.New("eof"), "books.json", "decode")
	assert.Equal(t, ErrorTypeSource, plain.Type)
	assert.Equal(t, "books.json", plain.Path)
	assert.Equal(t, ErrCodeSourceRead, Code(plain))
	assert.Equal(t, "", Code(errors.New("plain")))
}

func TestHelperConstructors(t *testing.T) {
	tbl := ErrTableNotFound("books")
	assert.Equal(t, ErrCodeTableNotFound, tbl.Code)
	assert.Equal(t, "books", tbl.Context["table"])
	assert.True(t, IsSourceError(tbl))

	col := ErrColumnNotFound("isbn")
	assert.Equal(t, ErrCodeColumnNotFound, col.Code)

	origin := ErrInvalidOrigin("http://evil.example")
	assert.Equal(t, ErrorTypeTransport, origin.Type)
	assert.Contains(t, origin.Error(), "evil.example")
}
