package model

// Survey is built once per request from a stored procedure result and never
// modified afterwards.
type Survey struct {
	ID          int        `json:"encuestaID"`
	Title       string     `json:"titulo"`
	Description string     `json:"descripcion"`
	TypeID      int        `json:"tipoEncuestaID"`
	Questions   []Question `json:"preguntas"`
}

type Question struct {
	ID       int      `json:"preguntaID"`
	Text     string   `json:"textoPregunta"`
	SurveyID int      `json:"encuestaID"`
	Options  []Option `json:"opciones"`
}

type Option struct {
	ID         int    `json:"opcionID"`
	Text       string `json:"textoOpcion"`
	QuestionID int    `json:"preguntaID"`
}

// Response is one (option, selected) pair of a submission.
type Response struct {
	OptionID int `json:"opcionID"`
	Selected int `json:"seleccionado"`
}

type ResponseSubmission struct {
	RespondentID string     `json:"usuarioID"`
	Responses    []Response `json:"respuestas"`
}

type SubmissionResult struct {
	Message      string `json:"mensaje"`
	RespondentID string `json:"usuario"`
	Stored       int    `json:"respuestas_guardadas"`
}
