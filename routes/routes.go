package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/httpx"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/metrics"
	"github.com/Joss220r/competencia-Desarrollo/routes/middlewares"
	"github.com/Joss220r/competencia-Desarrollo/web"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(
		middleware.RequestID,
		middlewares.Logger,
		middleware.Recoverer,
		middlewares.Metrics,
		middlewares.CORS(app.CORSOrigin),
	)

	root.Get("/health", Health(app))
	root.Method(http.MethodGet, "/metrics", metrics.Handler())
	root.Mount("/api", apiRouter(app))
	root.Mount("/", web.Handler())

	return root
}

// maxBodyBytes bounds every request body under /api.
const maxBodyBytes = 1 << 20

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	api.Use(middleware.RequestSize(maxBodyBytes))

	api.Route("/encuestas", func(r chi.Router) {
		r.Post("/responder", SubmitResponses(app))
		r.Get("/resumen/{encuestaId}", GetSummary(app))
		r.Get("/{tipoEncuestaId}", GetSurveyByType(app))
	})

	if app.Diagnostics {
		api.Route("/diagnostico", func(r chi.Router) {
			r.Use(middlewares.DiagAuth(app.DiagSecret))

			r.Get("/sp-info/{tipoEncuestaId}", DiagnoseSurveyProc(app))
			r.Get("/sp-resumen-info/{encuestaId}", DiagnoseSummaryProc(app))
			r.Get("/test-connection", TestConnection(app))
		})
	}

	return api
}

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"estado": "ok",
		})
	}
}

// intParam reads an integer URL parameter, answering 400 when it is not one.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+name,
			"%s debe ser un número entero", name)
		return 0, false
	}
	return value, true
}
