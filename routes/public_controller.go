package routes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/httpx"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/model"
)

const submittedMessage = "Respuestas guardadas exitosamente"

func GetSurveyByType(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, ok := intParam(w, r, "tipoEncuestaId")
		if !ok {
			return
		}

		survey, err := app.Surveys.Survey(r.Context(), typeID)
		if err != nil {
			httpx.LogError(w, r, "get_survey", typeID, err)
			return
		}

		render.JSON(w, r, survey)
	}
}

func SubmitResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submission := model.ResponseSubmission{}
		err := render.DecodeJSON(r.Body, &submission)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.LogStatusMsg(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_too_large",
				"el cuerpo supera %d bytes", tooLarge.Limit)
			return
		}
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body",
				"cuerpo JSON inválido: %s", err)
			return
		}

		stored, err := app.Surveys.Submit(r.Context(), submission)
		respondent := strings.TrimSpace(submission.RespondentID)
		if err != nil {
			httpx.LogError(w, r, "submit_responses", respondent, err)
			return
		}

		render.JSON(w, r, model.SubmissionResult{
			Message:      submittedMessage,
			RespondentID: respondent,
			Stored:       stored,
		})
	}
}

// GetSummary forwards the summary procedure's JSON text without decoding it.
func GetSummary(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := intParam(w, r, "encuestaId")
		if !ok {
			return
		}

		summary, err := app.Surveys.Summary(r.Context(), surveyID)
		if err != nil {
			httpx.LogError(w, r, "get_summary", surveyID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, summary)
	}
}
