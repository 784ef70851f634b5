package client

import (
	"math"

	"github.com/goccy/go-json"
)

type Indicator string

const (
	IndicatorHigh   Indicator = "alto"
	IndicatorMedium Indicator = "medio"
	IndicatorLow    Indicator = "bajo"
)

func IndicatorFor(percent int) Indicator {
	switch {
	case percent >= 60:
		return IndicatorHigh
	case percent >= 30:
		return IndicatorMedium
	}
	return IndicatorLow
}

type OptionResult struct {
	ID      int
	Text    string
	Count   int
	Percent int
}

// Panel is one block of the results view. An Illustrative panel shows a
// stand-in percentage because the summary carried no counts for it; it is
// display filler, not data.
type Panel struct {
	Title        string
	Percent      int
	Indicator    Indicator
	Illustrative bool
	Options      []OptionResult
}

type ResultsView struct {
	SurveyID    int
	Title       string
	Respondents *int
	General     Panel
	Questions   []Panel
}

// Illustrative reports whether any panel shows a stand-in percentage.
func (v ResultsView) Illustrative() bool {
	if v.General.Illustrative {
		return true
	}
	for _, p := range v.Questions {
		if p.Illustrative {
			return true
		}
	}
	return false
}

type summaryDoc struct {
	EncuestaID    int    `json:"encuestaID"`
	Titulo        string `json:"titulo"`
	TotalUsuarios *int   `json:"totalUsuarios"`
	Preguntas     []struct {
		TextoPregunta string `json:"textoPregunta"`
		Opciones      []struct {
			OpcionID          int    `json:"opcionID"`
			TextoOpcion       string `json:"textoOpcion"`
			TotalSeleccionado *int   `json:"totalSeleccionado"`
		} `json:"opciones"`
	} `json:"preguntas"`
}

// BuildResults turns summary JSON into a results view. A question's percent
// is the share of its most selected option.
func BuildResults(raw []byte) (ResultsView, error) {
	var doc summaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ResultsView{}, err
	}

	view := ResultsView{
		SurveyID:    doc.EncuestaID,
		Title:       doc.Titulo,
		Respondents: doc.TotalUsuarios,
		Questions:   make([]Panel, 0, len(doc.Preguntas)),
	}

	sum, anyIllustrative := 0, false
	for _, q := range doc.Preguntas {
		title := q.TextoPregunta
		if title == "" {
			title = "Sin pregunta"
		}
		panel := Panel{Title: title}

		total, best, counted := 0, 0, false
		for _, o := range q.Opciones {
			result := OptionResult{ID: o.OpcionID, Text: o.TextoOpcion}
			if o.TotalSeleccionado != nil {
				counted = true
				result.Count = *o.TotalSeleccionado
				total += result.Count
				if result.Count > best {
					best = result.Count
				}
			}
			panel.Options = append(panel.Options, result)
		}

		if counted && total > 0 {
			panel.Percent = percentOf(best, total)
			for i := range panel.Options {
				panel.Options[i].Percent = percentOf(panel.Options[i].Count, total)
			}
		} else {
			panel.Percent = illustrativePercent(q.TextoPregunta)
			panel.Illustrative = true
		}
		panel.Indicator = IndicatorFor(panel.Percent)

		sum += panel.Percent
		anyIllustrative = anyIllustrative || panel.Illustrative
		view.Questions = append(view.Questions, panel)
	}

	// the general panel is illustrative as soon as one of its inputs is
	view.General = Panel{Title: "Resumen general", Illustrative: anyIllustrative}
	if len(view.Questions) > 0 {
		view.General.Percent = int(math.Round(float64(sum) / float64(len(view.Questions))))
	} else {
		view.General.Percent = illustrativePercent(doc.Titulo)
		view.General.Illustrative = true
	}
	view.General.Indicator = IndicatorFor(view.General.Percent)

	return view, nil
}

func percentOf(n, total int) int {
	return int(math.Round(100 * float64(n) / float64(total)))
}

// illustrativePercent is FNV-1a over the code points of text, reduced to
// 0..100. The browser frontend computes the same value.
func illustrativePercent(text string) int {
	h := uint32(2166136261)
	for _, r := range text {
		h ^= uint32(r)
		h *= 16777619
	}
	return int(h % 101)
}
