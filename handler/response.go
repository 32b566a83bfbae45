package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stevemurr/sneakers-server/collection"
)

const (
	msgNotFound      = "Not Found"
	msgItemsNotFound = "Items Not Found"
	msgServerError   = "Server Error"
)

type resultKind int

const (
	resultOK resultKind = iota
	resultNotFound
	resultInternal
)

// Result is the outcome of one routed request: Ok carries the payload to
// serialize, NotFound a client-facing message, Internal the error to log.
type Result struct {
	kind    resultKind
	payload any
	message string
	err     error
}

func OK(payload any) Result {
	return Result{kind: resultOK, payload: payload}
}

func NotFound(message string) Result {
	return Result{kind: resultNotFound, message: message}
}

func Internal(err error) Result {
	return Result{kind: resultInternal, err: err}
}

// Status returns the HTTP status code the result maps to.
func (r Result) Status() int {
	switch r.kind {
	case resultNotFound:
		return http.StatusNotFound
	case resultInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// Body returns the value serialized as the response body.
func (r Result) Body() any {
	switch r.kind {
	case resultNotFound:
		return message{Message: r.message}
	case resultInternal:
		return message{Message: msgServerError}
	default:
		return r.payload
	}
}

// Err returns the underlying error of an Internal result.
func (r Result) Err() error {
	return r.err
}

type message struct {
	Message string `json:"message"`
}

// resultOf classifies an operation outcome. Only a missing item is a client
// error; every other failure is internal.
func resultOf(payload any, err error) Result {
	switch {
	case err == nil:
		return OK(payload)
	case errors.Is(err, collection.ErrItemNotFound):
		return NotFound(msgItemsNotFound)
	default:
		return Internal(err)
	}
}

// respond writes res. CORS and content-type headers are already set by the
// middleware chain.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res Result) {
	if res.kind == resultInternal {
		requestLogger(h.logger, r).WithError(res.err).Error("request failed")
	}
	b, err := encode(res.Body())
	if err != nil {
		requestLogger(h.logger, r).WithError(err).Error("encode response")
		res = Internal(err)
		b, _ = encode(res.Body())
	}
	writeJSON(w, res.Status(), b)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
