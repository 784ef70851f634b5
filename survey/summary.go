package survey

import (
	"context"
	"strings"

	"github.com/Joss220r/competencia-Desarrollo/database"
)

const emptySummary = "{}"

// SummaryReader forwards the summary procedure's JSON untouched.
type SummaryReader struct {
	gw   *database.Gateway
	proc string
}

func NewSummaryReader(gw *database.Gateway, proc string) *SummaryReader {
	return &SummaryReader{gw: gw, proc: proc}
}

// Summary returns the JSON text produced for surveyID, "{}" when the
// procedure yields NULL or nothing.
func (r *SummaryReader) Summary(ctx context.Context, surveyID int) (string, error) {
	var b strings.Builder
	err := r.gw.Query(ctx, r.proc, func(columns []string, row database.Row) error {
		if len(columns) == 0 {
			return nil
		}
		// FOR JSON output longer than one row continues on the next ones
		if b.Len() > 0 && columns[0] != ForJSONColumn {
			return nil
		}
		if s, ok := row[columns[0]].Text(); ok {
			b.WriteString(s)
		}
		return nil
	}, database.P("EncuestaID", surveyID))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return emptySummary, nil
	}
	return text, nil
}
