package server

import (
	"net/http"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/topicmap/maperr"
)

// statusFor maps an error to the HTTP status reported for it
func statusFor(err error) int {
	switch {
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsInvariant(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeErr reports err to the client. Server-side failures are logged with
// their full detail; the client only sees the user-facing message.
func (s *Server) writeErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	me := maperr.Classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorw("Request failed", append([]interface{}{logger.FieldOperation, op}, me.ToLogFields()...)...)
		_ = writeJSON(w, status, ErrorResponse{Error: me.ToUIMessage(), Category: me.Category.String()})
		return
	}
	_ = writeJSON(w, status, ErrorResponse{Error: err.Error(), Category: me.Category.String()})
}
