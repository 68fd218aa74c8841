package server

import (
	"encoding/json"
	"net/http"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := pherrors.GetCode(err)

	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = pherrors.UserMessage(err)
	if body.Error.Code == "" {
		body.Error.Code = string(pherrors.ErrCodeInternal)
	}

	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	s.writeJSON(w, status, body)
}

// statusForCode maps engine error codes to HTTP statuses. Unknown codes
// read as internal failures.
func statusForCode(code pherrors.Code) int {
	switch code {
	case pherrors.ErrCodeInvalidInput, pherrors.ErrCodeMissingField,
		pherrors.ErrCodeWrongType, pherrors.ErrCodeInvalidManifest,
		pherrors.ErrCodeInvalidCommand:
		return http.StatusBadRequest
	case pherrors.ErrCodeStateRequired, pherrors.ErrCodeHashMismatch:
		return http.StatusConflict
	case pherrors.ErrCodeNoChanges:
		return http.StatusUnprocessableEntity
	case pherrors.ErrCodeNotFound, pherrors.ErrCodePackNotFound, pherrors.ErrCodePageNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
