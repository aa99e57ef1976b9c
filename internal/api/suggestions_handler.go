package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSuggestionLimit = 50
	maxSuggestionLimit     = 500
)

type importSuggestionsRequest struct {
	WorkspaceID string                    `json:"workspaceId"`
	Items       []domain.SuggestionRecord `json:"items"`
}

type listSuggestionsResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

type setStateRequest struct {
	State domain.SuggestionState `json:"state"`
}

// ImportSuggestions upserts a batch into the header's workspace.
//
//	POST /v1/suggestions/import
func (h *Handlers) ImportSuggestions(w http.ResponseWriter, r *http.Request) {
	ws, err := resolveWorkspace(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req importSuggestionsRequest
	if err := h.decodeBody(r, schemaSuggestionsImport, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := matchWorkspace(ws, req.WorkspaceID); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.ingest.ImportSuggestions(r.Context(), ws, req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, res)
}

// ListSuggestions pages through the workspace's suggestions.
//
//	GET /v1/suggestions?state=&limit=&offset=
func (h *Handlers) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	ws, err := resolveWorkspace(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filter := domain.SuggestionFilter{}
	if s := strings.TrimSpace(r.URL.Query().Get("state")); s != "" {
		filter.State = domain.SuggestionState(strings.ToUpper(s))
		if !filter.State.Valid() {
			httputil.BadRequest(w, "invalid_state", "state must be one of NEW, ACCEPTED, REJECTED, SNOOZED, RESOLVED")
			return
		}
	}
	page := ParsePagination(r, defaultSuggestionLimit, maxSuggestionLimit)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, total, err := h.ingest.ListSuggestions(r.Context(), ws, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, listSuggestionsResponse{Suggestions: list, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// SetSuggestionState moves one suggestion through review.
//
//	POST /v1/suggestions/{uniqueKey}/state
func (h *Handlers) SetSuggestionState(w http.ResponseWriter, r *http.Request) {
	ws, err := resolveWorkspace(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	key, err := url.PathUnescape(chi.URLParam(r, "uniqueKey"))
	if err != nil || strings.TrimSpace(key) == "" {
		httputil.BadRequest(w, "invalid_key", "uniqueKey path segment is invalid")
		return
	}
	var req setStateRequest
	if err := h.decodeBody(r, schemaSuggestionState, &req); err != nil {
		respondError(w, r, err)
		return
	}

	s, err := h.ingest.SetSuggestionState(r.Context(), ws, key, req.State)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, s)
}
