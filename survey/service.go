package survey

import (
	"context"

	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/model"
)

type Options struct {
	Shape          Shape
	SurveyProc     string
	SummaryProc    string
	ResponsesTable string
}

// Service ties the assembler, writer and summary reader to one gateway.
type Service struct {
	gw         *database.Gateway
	surveyProc string
	assembler  Assembler
	writer     *ResponseWriter
	summaries  *SummaryReader
}

func NewService(gw *database.Gateway, opts Options) *Service {
	return &Service{
		gw:         gw,
		surveyProc: opts.SurveyProc,
		assembler:  NewAssembler(opts.Shape),
		writer:     NewResponseWriter(gw, opts.ResponsesTable),
		summaries:  NewSummaryReader(gw, opts.SummaryProc),
	}
}

func (s *Service) SurveyProc() string {
	return s.surveyProc
}

func (s *Service) SummaryProc() string {
	return s.summaries.proc
}

// Survey fetches and assembles the survey of the given type.
func (s *Service) Survey(ctx context.Context, typeID int) (*model.Survey, error) {
	rs, err := s.gw.Call(ctx, s.surveyProc, database.P("TipoEncuestaID", typeID))
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(typeID, rs)
}

func (s *Service) Submit(ctx context.Context, sub model.ResponseSubmission) (int, error) {
	return s.writer.Submit(ctx, sub)
}

func (s *Service) Summary(ctx context.Context, surveyID int) (string, error) {
	return s.summaries.Summary(ctx, surveyID)
}
