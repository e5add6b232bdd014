package tui

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/logging"
)

// Options configures Run.
type Options struct {
	Title     string
	Delay     time.Duration
	Logger    logging.Logger
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Run shows the browse screen for catalog until the user quits or ctx is
// done.
func Run(ctx context.Context, catalog *livesearch.Catalog, opts Options) error {
	var program *tea.Program

	sessionOpts := []livesearch.Option{livesearch.WithID("tui")}
	if opts.Logger != nil {
		sessionOpts = append(sessionOpts, livesearch.WithLogger(opts.Logger))
	}
	// The sink only fires after a keystroke, which the running program
	// delivers, so program is always set by then.
	session, err := livesearch.New(catalog, opts.Delay, func(res livesearch.Result) {
		program.Send(ResultMsg{Result: res})
	}, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	teaOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		teaOpts = append(teaOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		teaOpts = append(teaOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}

	program = tea.NewProgram(NewModel(session, catalog.Search(""), opts.Title), teaOpts...)
	if _, err := program.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
