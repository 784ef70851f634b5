package survey

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"

	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/metrics"
	"github.com/Joss220r/competencia-Desarrollo/model"
)

const maxRespondentID = 100

var responseColumns = []string{"UsuarioID", "OpcionID", "Seleccionado", "FechaRespuesta"}

// ResponseWriter stores a submission as one row per response, all in a
// single transaction.
type ResponseWriter struct {
	gw    *database.Gateway
	table string
	now   func() time.Time
}

func NewResponseWriter(gw *database.Gateway, table string) *ResponseWriter {
	return &ResponseWriter{gw: gw, table: table, now: time.Now}
}

// Validate reports every problem of a submission at once.
func Validate(sub model.ResponseSubmission) error {
	var errs *multierror.Error

	respondent := strings.TrimSpace(sub.RespondentID)
	switch {
	case respondent == "":
		errs = multierror.Append(errs, fmt.Errorf("usuarioID is required"))
	case utf8.RuneCountInString(respondent) > maxRespondentID:
		errs = multierror.Append(errs, fmt.Errorf("usuarioID longer than %d characters", maxRespondentID))
	}

	if len(sub.Responses) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one response is required"))
	}
	for i, r := range sub.Responses {
		if r.OptionID <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("respuestas[%d]: opcionID must be positive, got %d", i, r.OptionID))
		}
		if r.Selected != 0 && r.Selected != 1 {
			errs = multierror.Append(errs, fmt.Errorf("respuestas[%d]: seleccionado must be 0 or 1, got %d", i, r.Selected))
		}
	}

	if errs == nil {
		return nil
	}
	return &ValidationError{errs: errs}
}

// Submit validates sub and writes it. Either every response is stored or
// none is; the returned count is the number of rows committed.
func (w *ResponseWriter) Submit(ctx context.Context, sub model.ResponseSubmission) (int, error) {
	if err := Validate(sub); err != nil {
		return 0, err
	}

	insert, err := w.gw.InsertStatement(w.table, responseColumns)
	if err != nil {
		return 0, err
	}

	respondent := strings.TrimSpace(sub.RespondentID)
	stamp := w.now()

	err = w.gw.InTx(ctx, "submit_responses", func(ctx context.Context, tx database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range sub.Responses {
			if _, err := stmt.ExecContext(ctx, respondent, r.OptionID, r.Selected, stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.AddResponses(len(sub.Responses))
	log.WithFields(log.Fields{
		"usuario":    respondent,
		"respuestas": len(sub.Responses),
	}).Info("responses stored")

	return len(sub.Responses), nil
}
