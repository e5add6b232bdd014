// Package source turns library data into row collections for filtering.
//
// Supported inputs are YAML, JSON and CSV catalog exports, saved HTML pages
// containing a table, and tables of an existing SQLite database. Sources are
// read-only: nothing here creates, migrates or writes data.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/rowfilter"
)

// Format names a source encoding.
type Format string

const (
	FormatAuto   Format = ""
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatHTML   Format = "html"
	FormatSQLite Format = "sqlite"
)

// Formats lists the accepted explicit formats.
var Formats = []Format{FormatYAML, FormatJSON, FormatCSV, FormatHTML, FormatSQLite}

// Options selects and shapes a source.
type Options struct {
	Path   string
	Format Format
	// Table is the database table to read; required for SQLite sources.
	Table string
	// Selector picks an HTML table by id ("#books" or "books").
	Selector string
	// Columns restricts and reorders columns by header name.
	Columns []string
	// NoHeader treats the first record as data and synthesizes col1..colN.
	NoHeader bool
}

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatAuto, FormatYAML, FormatJSON, FormatCSV, FormatHTML, FormatSQLite:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "htm":
		return FormatHTML, nil
	case "db", "sqlite3":
		return FormatSQLite, nil
	}
	return "", errors.NewSourceError(errors.ErrCodeSourceUnsupported,
		fmt.Sprintf("unsupported source format %q", s), nil)
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", errors.NewSourceError(errors.ErrCodeSourceUnsupported,
		"cannot infer source format from extension", nil).WithPath(path)
}

// Load reads the source described by opts into a table.
func Load(ctx context.Context, opts Options) (*rowfilter.Table, error) {
	if opts.Path == "" {
		return nil, errors.NewInvalidArgument("source path is required")
	}

	format := opts.Format
	if format == FormatAuto {
		detected, err := DetectFormat(opts.Path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	if _, err := os.Stat(opts.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "source file not found", err).
				WithPath(opts.Path)
		}
		return nil, errors.WrapSource(err, opts.Path, "stat source")
	}

	var (
		header  []string
		records [][]string
		err     error
	)

	switch format {
	case FormatSQLite:
		header, records, err = loadSQLite(ctx, opts.Path, opts.Table)
	case FormatHTML:
		header, records, err = readFile(opts.Path, func(data []byte) ([]string, [][]string, error) {
			return parseHTML(data, opts.Selector)
		})
	case FormatYAML:
		header, records, err = readFile(opts.Path, parseYAML)
	case FormatJSON:
		header, records, err = readFile(opts.Path, parseJSON)
	case FormatCSV:
		header, records, err = readFile(opts.Path, parseCSV)
	default:
		return nil, errors.NewSourceError(errors.ErrCodeSourceUnsupported,
			fmt.Sprintf("unsupported source format %q", format), nil).WithPath(opts.Path)
	}
	if err != nil {
		return nil, err
	}

	if opts.NoHeader && format != FormatSQLite {
		if header != nil {
			records = append([][]string{header}, records...)
		}
		header = syntheticHeader(records)
	}

	header, records = normalize(header, records)

	if len(opts.Columns) > 0 {
		header, records, err = selectColumns(header, records, opts.Columns)
		if err != nil {
			return nil, err
		}
	}

	table := rowfilter.NewTable(header, records)
	table.Name = opts.Path
	if opts.Table != "" {
		table.Name = opts.Path + ":" + opts.Table
	}
	return table, nil
}

func readFile(path string, parse func([]byte) ([]string, [][]string, error)) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.WrapSource(err, path, "read source")
	}
	header, records, err := parse(data)
	if err != nil {
		return nil, nil, errors.WrapSource(err, path, "parse source")
	}
	return header, records, nil
}

func syntheticHeader(records [][]string) []string {
	width := 0
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	header := make([]string, width)
	for i := range header {
		header[i] = fmt.Sprintf("col%d", i+1)
	}
	return header
}

// normalize pads every record and the header to the same width.
func normalize(header []string, records [][]string) ([]string, [][]string) {
	width := len(header)
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(header) < width {
		header = append(header, fmt.Sprintf("col%d", len(header)+1))
	}
	for i, r := range records {
		for len(r) < width {
			r = append(r, "")
		}
		records[i] = r
	}
	return header, records
}

func selectColumns(header []string, records [][]string, columns []string) ([]string, [][]string, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	picks := make([]int, 0, len(columns))
	newHeader := make([]string, 0, len(columns))
	for _, c := range columns {
		i, ok := index[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			return nil, nil, errors.ErrColumnNotFound(c)
		}
		picks = append(picks, i)
		newHeader = append(newHeader, header[i])
	}

	out := make([][]string, len(records))
	for r, rec := range records {
		row := make([]string, len(picks))
		for j, i := range picks {
			row[j] = rec[i]
		}
		out[r] = row
	}
	return newHeader, out, nil
}
