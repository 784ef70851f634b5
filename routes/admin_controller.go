package routes

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/httpx"
	"github.com/Joss220r/competencia-Desarrollo/log"
)

// Diagnostic endpoints report what the procedures actually return. Errors
// carry their cause in the body since this surface exists for debugging.

func DiagnoseSurveyProc(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, ok := intParam(w, r, "tipoEncuestaId")
		if !ok {
			return
		}

		proc := app.Surveys.SurveyProc()
		rs, err := app.Call(r.Context(), proc, database.P("TipoEncuestaID", typeID))
		if err != nil {
			httpx.LogStatusMsg(w, r, httpx.StatusFor(err), log.ErrorLevel, "diagnostics.sp_info", "%s", err)
			return
		}

		firstRow := database.Row{}
		if len(rs.Rows) > 0 {
			firstRow = rs.Rows[0]
		}
		columns := rs.Columns
		if columns == nil {
			columns = []string{}
		}

		render.JSON(w, r, map[string]any{
			"tipoEncuestaID":  typeID,
			"columnas":        columns,
			"primerRegistro":  firstRow,
			"totalRegistros":  len(rs.Rows),
			"storedProcedure": proc,
		})
	}
}

func DiagnoseSummaryProc(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := intParam(w, r, "encuestaId")
		if !ok {
			return
		}

		proc := app.Surveys.SummaryProc()
		value, err := app.Scalar(r.Context(), proc, database.P("EncuestaID", surveyID))
		if err != nil {
			httpx.LogStatusMsg(w, r, httpx.StatusFor(err), log.ErrorLevel, "diagnostics.sp_resumen_info", "%s", err)
			return
		}

		var typeName, content any
		if !value.IsNull() {
			typeName = value.TypeName()
			content, _ = value.Text()
		}

		render.JSON(w, r, map[string]any{
			"encuestaID":      surveyID,
			"resultadoTipo":   typeName,
			"contenido":       content,
			"esNull":          value.IsNull(),
			"storedProcedure": proc,
		})
	}
}

func TestConnection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := app.Ping(r.Context())
		if err != nil {
			log.Errorf("diagnostics.test_connection: %s", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]any{
				"conexion": "Fallida",
				"error":    err.Error(),
			})
			return
		}

		render.JSON(w, r, map[string]any{
			"conexion":      "Exitosa",
			"fechaServidor": info.Time,
			"versionSQL":    info.Version,
		})
	}
}
