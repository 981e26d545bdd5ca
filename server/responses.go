package server

import (
	"encoding/json"
	"net/http"

	"github.com/michaellperry/gamehub-identity/internal/autherr"
	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/pkg/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeFlowError maps the internal error taxonomy onto HTTP statuses and
// RFC 6749 error codes. Client parameter detail is safe to echo; every
// invalid-grant cause collapses to the same generic body so callers
// cannot probe which check failed.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, autherr.ErrClientParameter):
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: clientSafeDetail(err),
		})
	case errors.Is(err, autherr.ErrIdentityRequired):
		writeJSON(w, http.StatusUnauthorized, oauth2.ErrorResponse{
			Error: oauth2.ErrorIdentityRequired,
		})
	case errors.Is(err, autherr.ErrAccessPathRequired):
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error: oauth2.ErrorAccessPathRequired,
		})
	case errors.Is(err, autherr.ErrInvalidGrant):
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error: oauth2.ErrorInvalidGrant,
		})
	case errors.Is(err, autherr.ErrSigning):
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("signing failure")
		writeJSON(w, http.StatusInternalServerError, oauth2.ErrorResponse{
			Error: oauth2.ErrorServerError,
		})
	case errors.Is(err, autherr.ErrStore):
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("store failure")
		writeJSON(w, http.StatusServiceUnavailable, oauth2.ErrorResponse{
			Error: oauth2.ErrorUnavailable,
		})
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected failure")
		writeJSON(w, http.StatusInternalServerError, oauth2.ErrorResponse{
			Error: oauth2.ErrorServerError,
		})
	}
}

// clientSafeDetail strips the sentinel suffix that pkg/errors appends,
// leaving only the parameter-level message.
func clientSafeDetail(err error) string {
	msg := err.Error()
	suffix := ": " + autherr.ErrClientParameter.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return msg
}
