package api

import (
	"net/http"

	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/auditai/insight-engine/internal/pkg/logger"
)

type crawlRequest struct {
	URL  string `json:"url"`
	Shop string `json:"shop"`
}

type suggestRequest struct {
	HTML string `json:"html"`
	Goal string `json:"goal"`
	Shop string `json:"shop"`
}

// Crawl fetches a page and returns its DOM summary.
//
//	POST /crawl
func (h *Handlers) Crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := h.decodeBody(r, schemaCrawl, &req); err != nil {
		respondError(w, r, err)
		return
	}
	logger.Info("api: crawl requested", "url", req.URL, "shop", req.Shop)

	page, err := h.insight.Crawl(r.Context(), req.URL)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, page)
}

// Suggest returns CRO suggestions for a page. Model failures still answer
// 200 with an explanatory rationale.
//
//	POST /suggest
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := h.decodeBody(r, schemaSuggest, &req); err != nil {
		respondError(w, r, err)
		return
	}
	logger.Info("api: suggestions requested", "goal", req.Goal, "shop", req.Shop, "html_bytes", len(req.HTML))

	resp, err := h.insight.Suggest(r.Context(), req.HTML, req.Goal)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, resp)
}
