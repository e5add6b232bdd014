package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"gopkg.in/yaml.v3"
)

// writeResult prints one search result in the requested format.
func writeResult(w io.Writer, format string, res livesearch.Result) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, res)
	case OutputYAML:
		return writeYAML(w, res)
	case OutputTable, "":
		return writeTable(w, res)
	default:
		return ValidateOutputFormat(format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeTable(w io.Writer, res livesearch.Result) error {
	if len(res.Columns) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(res.Columns...).
			Rows(res.Rows...)
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d of %d rows", res.Matched, res.Total)
	if res.Query != "" {
		summary += fmt.Sprintf(" match %q", res.Query)
	}
	if res.Skipped > 0 {
		summary += fmt.Sprintf(" (%d unreadable)", res.Skipped)
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}
