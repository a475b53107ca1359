// Package shared holds the response helpers used by every handler. WriteError
// is the single place where domain errors become HTTP responses; handlers and
// middleware never pick status codes themselves.
package shared

import (
	"encoding/json"
	"net/http"

	"conduit/pkg/domainerrors"
)

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates err into an HTTP response. Non-domain errors map to
// 500 with a generic message so internal details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	kind := domainerrors.KindOf(err)
	WriteJSON(w, domainerrors.HTTPStatus(kind), ErrorBody{
		Error: ErrorDetail{
			Message: domainerrors.MessageOf(err),
			Code:    domainerrors.CodeOf(err),
		},
	})
}
