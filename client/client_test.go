package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/client"
	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/model"
	"github.com/Joss220r/competencia-Desarrollo/routes"
	"github.com/Joss220r/competencia-Desarrollo/survey"
	"github.com/Joss220r/competencia-Desarrollo/testutil"
)

// setupAPI serves the real router over a fresh seeded database.
func setupAPI(t *testing.T) *client.Client {
	t.Helper()

	cfg := testutil.TestConfig(t)
	db := testutil.SetupTestDB(t, cfg)
	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		t.Fatal(err)
	}
	gw := database.NewGateway(db, dialect, cfg.CallTimeout)
	handler := routes.Wire(app.App{
		Gateway: gw,
		Surveys: survey.NewService(gw, survey.Options{
			Shape:          survey.ShapeFlat,
			SurveyProc:     cfg.SurveyProc,
			SummaryProc:    cfg.SummaryProc,
			ResponsesTable: cfg.ResponsesTable,
		}),
		Config: cfg,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	c := setupAPI(t)
	ctx := context.Background()

	s, err := c.GetSurvey(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != 2 || len(s.Questions) != 2 {
		t.Fatalf("unexpected survey %+v", s)
	}

	var responses []model.Response
	for _, q := range s.Questions {
		for i, o := range q.Options {
			selected := 0
			if i == 0 {
				selected = 1
			}
			responses = append(responses, model.Response{OptionID: o.ID, Selected: selected})
		}
	}

	result, err := c.Submit(ctx, model.ResponseSubmission{RespondentID: "u7", Responses: responses})
	if err != nil {
		t.Fatal(err)
	}
	if result.Stored != len(responses) || result.RespondentID != "u7" {
		t.Errorf("unexpected result %+v", result)
	}

	raw, err := c.Summary(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	view, err := client.BuildResults(raw)
	if err != nil {
		t.Fatal(err)
	}
	if view.Respondents == nil || *view.Respondents != 1 {
		t.Errorf("expected one respondent, got %v", view.Respondents)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("expected 2 question panels, got %d", len(view.Questions))
	}
	for _, p := range view.Questions {
		if p.Illustrative || p.Percent != 100 {
			t.Errorf("expected real 100%% for %q, got %d (illustrative %v)", p.Title, p.Percent, p.Illustrative)
		}
	}
}

func TestClient_Errors(t *testing.T) {
	c := setupAPI(t)
	ctx := context.Background()

	if _, err := c.GetSurvey(ctx, 4); !errors.Is(err, client.ErrSurveyType) {
		t.Errorf("expected ErrSurveyType, got %v", err)
	}

	// validation happens client-side, the server never sees it
	if _, err := c.Submit(ctx, model.ResponseSubmission{RespondentID: "u1"}); err == nil {
		t.Error("expected validation error for an empty submission")
	}

	_, err := c.Submit(ctx, model.ResponseSubmission{
		RespondentID: "u1",
		Responses:    []model.Response{{OptionID: 9999, Selected: 1}},
	})
	var serr *client.StatusError
	if !errors.As(err, &serr) || serr.Status != http.StatusInternalServerError {
		t.Errorf("expected 500 StatusError, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := client.New(srv.URL, client.WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetSurvey(context.Background(), 1); !errors.Is(err, client.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Summary(ctx, 1); !errors.Is(err, client.ErrTimeout) {
		t.Errorf("expected cancellation to surface as ErrTimeout, got %v", err)
	}
}

func TestClient_MalformedSurvey(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"no id", `{"titulo":"x","preguntas":[]}`},
		{"no title", `{"encuestaID":1,"preguntas":[]}`},
		{"questions not array", `{"encuestaID":1,"titulo":"x","preguntas":{}}`},
		{"questions missing", `{"encuestaID":1,"titulo":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := client.New(srv.URL)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.GetSurvey(context.Background(), 1); !errors.Is(err, client.ErrMalformedSurvey) {
				t.Errorf("expected ErrMalformedSurvey, got %v", err)
			}
		})
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := client.New("localhost:5088"); err == nil {
		t.Error("expected an error for a URL without http scheme")
	}
}
