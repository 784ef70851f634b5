package httpx

import (
	"net/http"
)

// ResponseRecorder passes writes through while remembering the status code
// and the number of body bytes, for logging and metrics.
type ResponseRecorder interface {
	http.ResponseWriter
	Status() int
	BytesWritten() int
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func NewResponseRecorder(w http.ResponseWriter) ResponseRecorder {
	if rec, ok := w.(ResponseRecorder); ok {
		return rec
	}
	return &responseRecorder{ResponseWriter: w}
}

// Status defaults to 200 once anything has been written.
func (resp *responseRecorder) Status() int {
	if resp.status == 0 && resp.bytes > 0 {
		return http.StatusOK
	}
	return resp.status
}

func (resp *responseRecorder) BytesWritten() int {
	return resp.bytes
}

func (resp *responseRecorder) Write(body []byte) (int, error) {
	if resp.status == 0 {
		resp.status = http.StatusOK
	}
	n, err := resp.ResponseWriter.Write(body)
	resp.bytes += n
	return n, err
}

func (resp *responseRecorder) WriteHeader(statusCode int) {
	if resp.status == 0 {
		resp.status = statusCode
	}
	resp.ResponseWriter.WriteHeader(statusCode)
}

func (resp *responseRecorder) Flush() {
	if f, ok := resp.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (resp *responseRecorder) Unwrap() http.ResponseWriter {
	return resp.ResponseWriter
}
