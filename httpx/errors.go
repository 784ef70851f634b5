package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/survey"
)

// ErrorBody is the JSON sent with every error status.
type ErrorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problemas,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	writeJSON(w, r, http.StatusInternalServerError, ErrorBody{Error: http.StatusText(http.StatusInternalServerError)})
}

// Will log a debug message, and send an HTTP response with status 404
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	writeJSON(w, r, http.StatusNotFound, ErrorBody{Error: fmt.Sprintf("no encontrado: %v", id)})
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	writeJSON(w, r, status, ErrorBody{Error: http.StatusText(status)})
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	writeJSON(w, r, status, ErrorBody{Error: errMsg})
}

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	var (
		validation *survey.ValidationError
		malformed  *survey.MalformedDataError
	)
	switch {
	case errors.Is(err, survey.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &malformed):
		return http.StatusBadGateway
	case errors.Is(err, database.ErrConnectivity):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// LogError logs err under code and answers with the status StatusFor picks.
// Server-side failures keep their cause out of the response body.
func LogError(w http.ResponseWriter, r *http.Request, code string, id any, err error) {
	var validation *survey.ValidationError

	switch status := StatusFor(err); status {
	case http.StatusNotFound:
		LogNotFound(w, r, code, id)
	case http.StatusBadRequest:
		errors.As(err, &validation)
		log.Debugf("%s: %s", code, err)
		writeJSON(w, r, status, ErrorBody{Error: "solicitud inválida", Problems: validation.Problems()})
	case http.StatusInternalServerError:
		LogInternalError(w, r, code, err)
	default:
		log.Errorf("%s: %s", code, err)
		writeJSON(w, r, status, ErrorBody{Error: http.StatusText(status)})
	}
}
