package cmd

import (
	"github.com/conneroisu/shelfsearch/internal/errors"
)

// errorHint suggests a next step for a failed command, or "" when there is
// nothing useful to add.
func errorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.HasCode(err, errors.ErrCodeTableNotFound):
		return "list the tables of the database with 'shelfsearch tables <database>'"
	case errors.HasCode(err, errors.ErrCodeColumnNotFound):
		return "check --columns against the header printed by 'shelfsearch filter'"
	case errors.HasCode(err, errors.ErrCodeSourceUnsupported):
		return "use --format yaml, json, csv, html or sqlite"
	case errors.IsSourceError(err):
		return "check --source and --format"
	case errors.IsConfigError(err):
		return "run 'shelfsearch config validate' for details"
	case errors.IsInvalidArgument(err):
		return "delays must be zero or positive, e.g. --delay 300ms or --delay-ms 300"
	}
	return ""
}
