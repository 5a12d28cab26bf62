package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the document written by JSON and JSONError.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error part of an Envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type jsonResponse struct {
	status int
	doc    any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.doc)
}

// JSON answers 200 with v under "data".
func JSON(v any) Response {
	return jsonResponse{status: http.StatusOK, doc: Envelope{Data: v}}
}

// JSONError answers with err under "error". An HTTPError anywhere in the
// chain sets status and code; any other error is a 500 "internal_error".
// A *ErrorDetail is written as given with status 500.
func JSONError(err any) Response {
	if d, ok := err.(*ErrorDetail); ok {
		return jsonResponse{status: http.StatusInternalServerError, doc: Envelope{Error: d}}
	}

	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: "internal_error"}
	if e, ok := err.(error); ok {
		detail.Message = e.Error()
		var httpErr HTTPError
		if errors.As(e, &httpErr) {
			status = httpErr.Code
			detail.Code = httpErr.Key
			detail.Message = http.StatusText(httpErr.Code)
		}
	}
	return jsonResponse{status: status, doc: Envelope{Error: detail}}
}

// JSONBody writes v as the whole document, without the envelope.
// Use it for machine clients that expect a flat body such as {"processed":2}.
func JSONBody(v any, status ...int) Response {
	code := http.StatusOK
	if len(status) > 0 {
		code = status[0]
	}
	return jsonResponse{status: code, doc: v}
}
