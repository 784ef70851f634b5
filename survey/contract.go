package survey

import (
	"strings"

	"github.com/Joss220r/competencia-Desarrollo/database"
)

// Field is a canonical column of the survey procedure result.
type Field string

const (
	FieldSurveyID     Field = "EncuestaID"
	FieldTitle        Field = "Titulo"
	FieldDescription  Field = "Descripcion"
	FieldQuestionID   Field = "PreguntaID"
	FieldQuestionText Field = "TextoPregunta"
	FieldOptionID     Field = "OpcionID"
	FieldOptionText   Field = "TextoOpcion"
	FieldJSON         Field = "EncuestaJson"
)

// ForJSONColumn is the column name SQL Server gives to an unaliased
// FOR JSON result. Long documents arrive split over several rows.
const ForJSONColumn = "JSON_F52E2B61-18A1-11d1-B105-00805F49916B"

// ColumnContract declares which column names a procedure may use for each
// canonical field. Names are matched case-insensitively, first match wins.
type ColumnContract struct {
	Version string
	Columns map[Field][]string
}

var ContractV1 = ColumnContract{
	Version: "v1",
	Columns: map[Field][]string{
		FieldSurveyID:     {"EncuestaID"},
		FieldTitle:        {"Titulo", "Nombre"},
		FieldDescription:  {"Descripcion"},
		FieldQuestionID:   {"PreguntaID"},
		FieldQuestionText: {"TextoPregunta"},
		FieldOptionID:     {"OpcionID"},
		FieldOptionText:   {"TextoOpcion"},
		FieldJSON:         {"EncuestaJson", "Json", ForJSONColumn},
	},
}

// columns maps each field to the column actually present in a result set.
type columns map[Field]string

func (c ColumnContract) resolve(present []string) columns {
	byLower := make(map[string]string, len(present))
	for _, name := range present {
		key := strings.ToLower(name)
		if _, dup := byLower[key]; !dup {
			byLower[key] = name
		}
	}

	resolved := make(columns, len(c.Columns))
	for field, candidates := range c.Columns {
		for _, candidate := range candidates {
			if name, ok := byLower[strings.ToLower(candidate)]; ok {
				resolved[field] = name
				break
			}
		}
	}
	return resolved
}

func (cols columns) value(row database.Row, f Field) database.Value {
	name, ok := cols[f]
	if !ok {
		return database.Absent
	}
	return row[name]
}

func (cols columns) number(row database.Row, f Field) (int, bool) {
	return cols.value(row, f).Int()
}

// text returns the column text, or def when it is missing, NULL or blank.
func (cols columns) text(row database.Row, f Field, def string) string {
	s, ok := cols.value(row, f).Text()
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
