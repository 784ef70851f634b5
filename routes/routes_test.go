package routes_test

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/goccy/go-json"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/config"
	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/routes"
	"github.com/Joss220r/competencia-Desarrollo/routes/middlewares"
	"github.com/Joss220r/competencia-Desarrollo/survey"
	"github.com/Joss220r/competencia-Desarrollo/testutil"
)

func setupServer(t *testing.T, configure func(*config.Config)) (http.Handler, *sql.DB) {
	t.Helper()

	cfg := testutil.TestConfig(t)
	if configure != nil {
		configure(&cfg)
	}
	db := testutil.SetupTestDB(t, cfg)
	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		t.Fatal(err)
	}
	shape, err := survey.ParseShape(cfg.SurveyShape)
	if err != nil {
		t.Fatal(err)
	}

	gw := database.NewGateway(db, dialect, cfg.CallTimeout)
	a := app.App{
		Gateway: gw,
		Surveys: survey.NewService(gw, survey.Options{
			Shape:          shape,
			SurveyProc:     cfg.SurveyProc,
			SummaryProc:    cfg.SummaryProc,
			ResponsesTable: cfg.ResponsesTable,
		}),
		Config: cfg,
	}
	return routes.Wire(a), db
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
}

func TestGetSurvey(t *testing.T) {
	h, _ := setupServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/encuestas/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		EncuestaID  int    `json:"encuestaID"`
		Titulo      string `json:"titulo"`
		Descripcion string `json:"descripcion"`
		Preguntas   []struct {
			PreguntaID    int    `json:"preguntaID"`
			TextoPregunta string `json:"textoPregunta"`
			Opciones      []struct {
				OpcionID    int    `json:"opcionID"`
				TextoOpcion string `json:"textoOpcion"`
			} `json:"opciones"`
		} `json:"preguntas"`
	}
	decode(t, rec, &body)

	if body.EncuestaID != 1 || body.Titulo == "" {
		t.Errorf("unexpected survey header %+v", body)
	}
	if len(body.Preguntas) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(body.Preguntas))
	}
	if len(body.Preguntas[0].Opciones) != 4 {
		t.Errorf("expected 4 options on the first question, got %d", len(body.Preguntas[0].Opciones))
	}
}

func TestGetSurvey_JSONShape(t *testing.T) {
	h, _ := setupServer(t, func(cfg *config.Config) {
		cfg.SurveyShape = "json"
		cfg.SurveyProc = "sp_ObtenerEncuestaPorTipoJson"
	})

	rec := do(t, h, http.MethodGet, "/api/encuestas/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		EncuestaID int   `json:"encuestaID"`
		Preguntas  []any `json:"preguntas"`
	}
	decode(t, rec, &body)
	if body.EncuestaID != 2 || len(body.Preguntas) != 2 {
		t.Errorf("unexpected survey %+v", body)
	}
}

func TestGetSurvey_Errors(t *testing.T) {
	h, _ := setupServer(t, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/api/encuestas/99", http.StatusNotFound},
		{"/api/encuestas/abc", http.StatusBadRequest},
		{"/api/encuestas/resumen/xyz", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			var body map[string]any
			decode(t, rec, &body)
			if _, ok := body["error"]; !ok {
				t.Errorf("expected an error field, got %v", body)
			}
		})
	}
}

func TestSubmitResponses(t *testing.T) {
	h, db := setupServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/encuestas/responder",
		`{"usuarioID":"u1","respuestas":[{"opcionID":5,"seleccionado":1},{"opcionID":6,"seleccionado":0}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Mensaje             string `json:"mensaje"`
		Usuario             string `json:"usuario"`
		RespuestasGuardadas int    `json:"respuestas_guardadas"`
	}
	decode(t, rec, &body)
	if body.Usuario != "u1" || body.RespuestasGuardadas != 2 || body.Mensaje == "" {
		t.Errorf("unexpected result %+v", body)
	}
	if n := testutil.CountResponses(t, db); n != 2 {
		t.Errorf("expected 2 persisted rows, got %d", n)
	}
}

func TestSubmitResponses_TrimsRespondent(t *testing.T) {
	h, _ := setupServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/encuestas/responder",
		`{"usuarioID":" u1 ","respuestas":[{"opcionID":5,"seleccionado":1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Usuario string `json:"usuario"`
	}
	decode(t, rec, &body)
	if body.Usuario != "u1" {
		t.Errorf("expected the stored id u1, got %q", body.Usuario)
	}
}

func TestSubmitResponses_BodyTooLarge(t *testing.T) {
	h, db := setupServer(t, nil)

	body := `{"usuarioID":"` + strings.Repeat("x", 2<<20) + `","respuestas":[{"opcionID":5,"seleccionado":1}]}`
	rec := do(t, h, http.MethodPost, "/api/encuestas/responder", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if n := testutil.CountResponses(t, db); n != 0 {
		t.Errorf("expected nothing persisted, got %d rows", n)
	}
}

func TestSubmitResponses_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{"usuarioID":`, http.StatusBadRequest},
		{"bad flag", `{"usuarioID":"u1","respuestas":[{"opcionID":5,"seleccionado":2}]}`, http.StatusBadRequest},
		{"no respondent", `{"respuestas":[{"opcionID":5,"seleccionado":1}]}`, http.StatusBadRequest},
		{"no responses", `{"usuarioID":"u1","respuestas":[]}`, http.StatusBadRequest},
		{"unknown option", `{"usuarioID":"u1","respuestas":[{"opcionID":1,"seleccionado":1},{"opcionID":9999,"seleccionado":1},{"opcionID":2,"seleccionado":0}]}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, db := setupServer(t, nil)

			rec := do(t, h, http.MethodPost, "/api/encuestas/responder", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if n := testutil.CountResponses(t, db); n != 0 {
				t.Errorf("expected nothing persisted, got %d rows", n)
			}
		})
	}
}

func TestSubmitResponses_ListsProblems(t *testing.T) {
	h, _ := setupServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/encuestas/responder",
		`{"usuarioID":"","respuestas":[{"opcionID":0,"seleccionado":3}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Problemas []string `json:"problemas"`
	}
	decode(t, rec, &body)
	if len(body.Problemas) != 3 {
		t.Errorf("expected 3 problems, got %v", body.Problemas)
	}
}

func TestGetSummary(t *testing.T) {
	h, _ := setupServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/encuestas/responder",
		`{"usuarioID":"u1","respuestas":[{"opcionID":5,"seleccionado":1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/encuestas/resumen/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body struct {
		EncuestaID    int `json:"encuestaID"`
		TotalUsuarios int `json:"totalUsuarios"`
	}
	decode(t, rec, &body)
	if body.EncuestaID != 1 || body.TotalUsuarios != 1 {
		t.Errorf("unexpected summary %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/api/encuestas/resumen/42", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "{}" {
		t.Errorf("expected 200 {}, got %d %q", rec.Code, rec.Body)
	}
}

func TestDatabaseUnavailable(t *testing.T) {
	h, db := setupServer(t, func(cfg *config.Config) { cfg.Diagnostics = true })
	db.Close()

	rec := do(t, h, http.MethodGet, "/api/encuestas/1", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/diagnostico/test-connection", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["conexion"] != "Fallida" || body["error"] == "" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestCORS(t *testing.T) {
	h, _ := setupServer(t, func(cfg *config.Config) { cfg.CORSOrigin = "http://localhost:8080" })

	rec := do(t, h, http.MethodOptions, "/api/encuestas/responder", "",
		"Origin", "http://localhost:8080",
		"Access-Control-Request-Method", "POST")
	if rec.Code != http.StatusOK {
		t.Errorf("expected preflight 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Errorf("unexpected allowed origin %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("expected POST among allowed methods, got %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}

	rec = do(t, h, http.MethodGet, "/api/encuestas/1", "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Errorf("expected CORS header on regular responses, got %q", got)
	}
}

func TestAmbientEndpoints(t *testing.T) {
	h, _ := setupServer(t, nil)

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	do(t, h, http.MethodGet, "/api/encuestas/1", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"encuestas_procedure_calls_total", "encuestas_http_requests_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("metrics: expected %s in exposition", name)
		}
	}

	rec = do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Encuestas académicas") {
		t.Errorf("frontend: expected index page, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/app.js", "")
	if rec.Code != http.StatusOK {
		t.Errorf("frontend: expected app.js, got %d", rec.Code)
	}
}

func TestDiagnostics_Disabled(t *testing.T) {
	h, _ := setupServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/diagnostico/test-connection", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with diagnostics off, got %d", rec.Code)
	}
}

func TestDiagnostics(t *testing.T) {
	h, _ := setupServer(t, func(cfg *config.Config) { cfg.Diagnostics = true })

	t.Run("sp-info", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/diagnostico/sp-info/3", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		var body struct {
			Columnas        []string       `json:"columnas"`
			PrimerRegistro  map[string]any `json:"primerRegistro"`
			TotalRegistros  int            `json:"totalRegistros"`
			StoredProcedure string         `json:"storedProcedure"`
		}
		decode(t, rec, &body)
		if len(body.Columnas) != 8 || body.TotalRegistros != 7 {
			t.Errorf("unexpected shape: %d columns, %d rows", len(body.Columnas), body.TotalRegistros)
		}
		if v, ok := body.PrimerRegistro["Descripcion"]; !ok || v != nil {
			t.Errorf("expected NULL description as JSON null, got %v", v)
		}
		if body.StoredProcedure != "sp_ObtenerEncuestaPorTipo" {
			t.Errorf("unexpected procedure %q", body.StoredProcedure)
		}
	})

	t.Run("sp-resumen-info", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/diagnostico/sp-resumen-info/42", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body map[string]any
		decode(t, rec, &body)
		if body["esNull"] != true || body["contenido"] != nil {
			t.Errorf("expected null result, got %v", body)
		}

		rec = do(t, h, http.MethodGet, "/api/diagnostico/sp-resumen-info/1", "")
		body = nil
		decode(t, rec, &body)
		if body["esNull"] != false || body["resultadoTipo"] != "string" {
			t.Errorf("expected text result, got %v", body)
		}
	})

	t.Run("test-connection", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/diagnostico/test-connection", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body map[string]any
		decode(t, rec, &body)
		if body["conexion"] != "Exitosa" {
			t.Errorf("unexpected body %v", body)
		}
		if v, _ := body["versionSQL"].(string); !strings.HasPrefix(v, "SQLite") {
			t.Errorf("unexpected version %q", v)
		}
	})
}

func TestDiagnostics_Auth(t *testing.T) {
	const secret = "s3cret"
	h, _ := setupServer(t, func(cfg *config.Config) {
		cfg.Diagnostics = true
		cfg.DiagSecret = secret
	})

	tokenAuth := jwtauth.New("HS256", []byte(secret), nil)
	_, withRole, err := tokenAuth.Encode(map[string]interface{}{"roles": "lector," + middlewares.DiagRole})
	if err != nil {
		t.Fatal(err)
	}
	_, withoutRole, err := tokenAuth.Encode(map[string]interface{}{"roles": "lector"})
	if err != nil {
		t.Fatal(err)
	}
	_, forged, err := jwtauth.New("HS256", []byte("otro"), nil).Encode(map[string]interface{}{"roles": middlewares.DiagRole})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"forged", forged, http.StatusUnauthorized},
		{"missing role", withoutRole, http.StatusForbidden},
		{"valid", withRole, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header []string
			if tt.token != "" {
				header = []string{"Authorization", "Bearer " + tt.token}
			}
			rec := do(t, h, http.MethodGet, "/api/diagnostico/test-connection", "", header...)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
