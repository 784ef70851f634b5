// Package client talks to the survey API the way the browser frontend does:
// every request carries a timeout, survey payloads are checked for structure,
// and submissions are validated before they leave the process.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"

	"github.com/Joss220r/competencia-Desarrollo/model"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when a request is cut by its timeout or cancelled.
	ErrTimeout = errors.New("request timed out")
	// ErrSurveyType rejects survey types outside 1..3 before any request.
	ErrSurveyType = errors.New("survey type must be 1, 2 or 3")
	// ErrMalformedSurvey means the API answered with a body lacking the survey structure.
	ErrMalformedSurvey = errors.New("malformed survey payload")
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status   int
	Message  string
	Problems []string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	if len(e.Problems) > 0 {
		msg += " (" + strings.Join(e.Problems, "; ") + ")"
	}
	return msg
}

type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API served at baseURL, e.g. http://localhost:5088.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{base: base, http: http.DefaultClient, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// rawSurvey keeps enough of the payload to check its structure before
// trusting it.
type rawSurvey struct {
	EncuestaID *int            `json:"encuestaID"`
	Titulo     *string         `json:"titulo"`
	Preguntas  json.RawMessage `json:"preguntas"`
}

func (c *Client) GetSurvey(ctx context.Context, surveyType int) (*model.Survey, error) {
	if surveyType < 1 || surveyType > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrSurveyType, surveyType)
	}

	body, err := c.do(ctx, http.MethodGet, "/api/encuestas/"+strconv.Itoa(surveyType), nil)
	if err != nil {
		return nil, err
	}

	var raw rawSurvey
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSurvey, err)
	}
	switch {
	case raw.EncuestaID == nil || *raw.EncuestaID <= 0:
		return nil, fmt.Errorf("%w: missing encuestaID", ErrMalformedSurvey)
	case raw.Titulo == nil || *raw.Titulo == "":
		return nil, fmt.Errorf("%w: missing titulo", ErrMalformedSurvey)
	case !isArray(raw.Preguntas):
		return nil, fmt.Errorf("%w: preguntas is not an array", ErrMalformedSurvey)
	}

	survey := &model.Survey{}
	if err := json.Unmarshal(body, survey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSurvey, err)
	}
	for i, q := range survey.Questions {
		if q.Options == nil {
			survey.Questions[i].Options = []model.Option{}
		}
	}
	return survey, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Validate checks a submission the way the server will, so obvious mistakes
// never cost a round trip.
func Validate(sub model.ResponseSubmission) error {
	var errs *multierror.Error

	if strings.TrimSpace(sub.RespondentID) == "" {
		errs = multierror.Append(errs, errors.New("usuarioID is required"))
	}
	if len(sub.Responses) == 0 {
		errs = multierror.Append(errs, errors.New("at least one response is required"))
	}
	for i, r := range sub.Responses {
		if r.OptionID <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("respuestas[%d]: invalid opcionID %d", i, r.OptionID))
		}
		if r.Selected != 0 && r.Selected != 1 {
			errs = multierror.Append(errs, fmt.Errorf("respuestas[%d]: seleccionado must be 0 or 1", i))
		}
	}
	return errs.ErrorOrNil()
}

func (c *Client) Submit(ctx context.Context, sub model.ResponseSubmission) (*model.SubmissionResult, error) {
	if err := Validate(sub); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/api/encuestas/responder", payload)
	if err != nil {
		return nil, err
	}

	result := &model.SubmissionResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("decode submission result: %w", err)
	}
	return result, nil
}

// Summary returns the summary JSON exactly as served.
func (c *Client) Summary(ctx context.Context, surveyID int) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/encuestas/resumen/"+strconv.Itoa(surveyID), nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, timeoutOr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, timeoutOr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error     string   `json:"error"`
			Problemas []string `json:"problemas"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			serr.Message = e.Error
			serr.Problems = e.Problemas
		}
		return nil, serr
	}
	return body, nil
}

func timeoutOr(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
