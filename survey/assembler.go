package survey

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/model"
)

// Shape is the form in which the survey procedure returns a survey. A
// deployment uses exactly one; the assembler never guesses.
//
//   - ShapeFlat: one row per (question, option) pair, each row repeating the
//     survey and question columns of the join.
//   - ShapeJSON: a single row with one column holding the whole
//     Survey → Preguntas → Opciones document.
type Shape int

const (
	ShapeFlat Shape = iota
	ShapeJSON
)

func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "flat", "":
		return ShapeFlat, nil
	case "json":
		return ShapeJSON, nil
	}
	return 0, fmt.Errorf("unknown survey shape %q", s)
}

func (s Shape) String() string {
	if s == ShapeJSON {
		return "json"
	}
	return "flat"
}

// Text used when the procedure leaves an optional column empty.
const (
	NoTitle       = "Sin título"
	NoDescription = "Sin descripción"
	NoQuestion    = "Sin pregunta"
	NoOption      = "Sin opción"
)

type Assembler struct {
	Shape    Shape
	Contract ColumnContract
}

func NewAssembler(shape Shape) Assembler {
	return Assembler{Shape: shape, Contract: ContractV1}
}

// Assemble builds the survey of type typeID out of a procedure result.
// No rows yields ErrNotFound. Rows lacking a question or option id are
// skipped rather than failing the whole survey.
func (a Assembler) Assemble(typeID int, rs *database.ResultSet) (*model.Survey, error) {
	if rs == nil || len(rs.Rows) == 0 {
		return nil, ErrNotFound
	}
	cols := a.Contract.resolve(rs.Columns)

	if a.Shape == ShapeJSON {
		return a.assembleJSON(typeID, cols, rs)
	}
	return a.assembleFlat(typeID, cols, rs)
}

func (a Assembler) assembleFlat(typeID int, cols columns, rs *database.ResultSet) (*model.Survey, error) {
	first := rs.Rows[0]
	surveyID, ok := cols.number(first, FieldSurveyID)
	if !ok || surveyID <= 0 {
		return nil, malformed("column %s missing or not a positive integer", FieldSurveyID)
	}

	survey := &model.Survey{
		ID:          surveyID,
		Title:       cols.text(first, FieldTitle, NoTitle),
		Description: cols.text(first, FieldDescription, NoDescription),
		TypeID:      typeID,
		Questions:   []model.Question{},
	}

	questions := make(map[int]int) // question id -> index in survey.Questions
	seen := make(map[[2]int]bool)  // (question id, option id)

	for _, row := range rs.Rows {
		// a join spanning several surveys only contributes the first one
		if id, ok := cols.number(row, FieldSurveyID); ok && id != surveyID {
			continue
		}

		questionID, ok := cols.number(row, FieldQuestionID)
		if !ok || questionID <= 0 {
			continue
		}
		idx, known := questions[questionID]
		if !known {
			idx = len(survey.Questions)
			questions[questionID] = idx
			survey.Questions = append(survey.Questions, model.Question{
				ID:       questionID,
				Text:     cols.text(row, FieldQuestionText, NoQuestion),
				SurveyID: surveyID,
				Options:  []model.Option{},
			})
		}

		optionID, ok := cols.number(row, FieldOptionID)
		if !ok || optionID <= 0 || seen[[2]int{questionID, optionID}] {
			continue
		}
		seen[[2]int{questionID, optionID}] = true
		q := &survey.Questions[idx]
		q.Options = append(q.Options, model.Option{
			ID:         optionID,
			Text:       cols.text(row, FieldOptionText, NoOption),
			QuestionID: questionID,
		})
	}

	return survey, nil
}

// embeddedSurvey is the document carried by the JSON shape. Field matching is
// case-insensitive; the title may arrive as Titulo or Nombre.
type embeddedSurvey struct {
	EncuestaID  *int               `json:"EncuestaID"`
	Titulo      *string            `json:"Titulo"`
	Nombre      *string            `json:"Nombre"`
	Descripcion *string            `json:"Descripcion"`
	Preguntas   []embeddedQuestion `json:"Preguntas"`
}

type embeddedQuestion struct {
	PreguntaID    *int             `json:"PreguntaID"`
	TextoPregunta *string          `json:"TextoPregunta"`
	Opciones      []embeddedOption `json:"Opciones"`
}

type embeddedOption struct {
	OpcionID    *int    `json:"OpcionID"`
	TextoOpcion *string `json:"TextoOpcion"`
}

func (a Assembler) assembleJSON(typeID int, cols columns, rs *database.ResultSet) (*model.Survey, error) {
	column, ok := cols[FieldJSON]
	if !ok {
		return nil, malformed("no JSON column among %v", rs.Columns)
	}

	doc := jsonDocument(column, rs.Rows)
	if len(doc) == 0 {
		return nil, ErrNotFound
	}

	var es embeddedSurvey
	if doc[0] == '[' {
		// FOR JSON PATH without WITHOUT_ARRAY_WRAPPER
		var list []embeddedSurvey
		if err := json.Unmarshal(doc, &list); err != nil {
			return nil, &MalformedDataError{Reason: "embedded survey JSON", Err: err}
		}
		if len(list) == 0 {
			return nil, ErrNotFound
		}
		es = list[0]
	} else if err := json.Unmarshal(doc, &es); err != nil {
		return nil, &MalformedDataError{Reason: "embedded survey JSON", Err: err}
	}

	if es.EncuestaID == nil || *es.EncuestaID <= 0 {
		return nil, malformed("embedded survey JSON has no %s", FieldSurveyID)
	}
	surveyID := *es.EncuestaID

	title := orDefault(es.Titulo, "")
	if title == "" {
		title = orDefault(es.Nombre, NoTitle)
	}
	survey := &model.Survey{
		ID:          surveyID,
		Title:       title,
		Description: orDefault(es.Descripcion, NoDescription),
		TypeID:      typeID,
		Questions:   make([]model.Question, 0, len(es.Preguntas)),
	}

	questions := make(map[int]bool)
	for _, eq := range es.Preguntas {
		if eq.PreguntaID == nil || *eq.PreguntaID <= 0 || questions[*eq.PreguntaID] {
			continue
		}
		questionID := *eq.PreguntaID
		questions[questionID] = true

		q := model.Question{
			ID:       questionID,
			Text:     orDefault(eq.TextoPregunta, NoQuestion),
			SurveyID: surveyID,
			Options:  make([]model.Option, 0, len(eq.Opciones)),
		}
		options := make(map[int]bool)
		for _, eo := range eq.Opciones {
			if eo.OpcionID == nil || *eo.OpcionID <= 0 || options[*eo.OpcionID] {
				continue
			}
			options[*eo.OpcionID] = true
			q.Options = append(q.Options, model.Option{
				ID:         *eo.OpcionID,
				Text:       orDefault(eo.TextoOpcion, NoOption),
				QuestionID: questionID,
			})
		}
		survey.Questions = append(survey.Questions, q)
	}

	return survey, nil
}

// jsonDocument extracts the JSON text. SQL Server streams long FOR JSON output
// as consecutive rows of its generated column, which must be concatenated.
func jsonDocument(column string, rows []database.Row) []byte {
	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 && column != ForJSONColumn {
			break
		}
		if s, ok := row[column].Text(); ok {
			buf.WriteString(s)
		}
	}
	return bytes.TrimSpace(buf.Bytes())
}

func orDefault(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}
