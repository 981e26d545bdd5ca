package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/oauth2"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/pkg/errors"
)

type createGAPRequest struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Policy  string `json:"policy"`
}

// handleCreateGAP registers a new access path for an event. Reserved for
// backend services (session orchestration) holding a service token.
func (s *Server) handleCreateGAP(w http.ResponseWriter, r *http.Request) {
	var req createGAPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "malformed JSON body",
		})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "event_id is required",
		})
		return
	}
	pathType := gap.Type(req.Type)
	if pathType != gap.TypeOpen && pathType != gap.TypeRestricted {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "type must be \"OPEN\" or \"RESTRICTED\"",
		})
		return
	}
	policy := gap.Policy(req.Policy)
	if policy != gap.PolicyCookieBased && policy != gap.PolicyInviteOnly {
		writeJSON(w, http.StatusBadRequest, oauth2.ErrorResponse{
			Error:       oauth2.ErrorInvalidRequest,
			Description: "policy must be \"COOKIE_BASED\" or \"INVITE_ONLY\"",
		})
		return
	}

	created, err := s.gaps.Create(r.Context(), req.EventID, pathType, policy)
	if err != nil {
		s.log.Error().Err(err).Msg("gap creation failed")
		writeJSON(w, http.StatusInternalServerError, oauth2.ErrorResponse{Error: oauth2.ErrorServerError})
		return
	}

	claims := ClaimsFromContext(r.Context())
	s.log.Info().
		Str("gap_id", created.ID).
		Str("event_id", created.EventID).
		Str("created_by", claims.Subject).
		Msg("access path created")

	writeJSON(w, http.StatusCreated, created)
}

// handleGetGAP returns an access path so a game frontend can tell which
// entry policy applies before starting the authorization flow.
func (s *Server) handleGetGAP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gapID")

	found, err := s.gaps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, oauth2.ErrorResponse{
				Error: oauth2.ErrorAccessPathRequired,
			})
			return
		}
		s.log.Error().Err(err).Str("gap_id", id).Msg("gap lookup failed")
		writeJSON(w, http.StatusServiceUnavailable, oauth2.ErrorResponse{Error: oauth2.ErrorUnavailable})
		return
	}

	writeJSON(w, http.StatusOK, found)
}
