package http

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"audioflow/internal/page"
)

type pageView struct {
	Lang        string
	Snapshot    page.Snapshot
	SessionPath string
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	if !h.allow(routePage, r) {
		h.renderPage(w, http.StatusTooManyRequests, page.Snapshot{
			State:   page.StateError,
			Message: h.deps.Localizer.T("error.rate_limited"),
		})
		return
	}

	id, ok := page.IdentifierFromQuery(r.URL.RawQuery)
	snapshot := h.newController(routePage).Load(r.Context(), id, ok)
	h.deps.Metrics.RecordPageLoad(string(snapshot.State))

	h.renderPage(w, http.StatusOK, snapshot)
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, snapshot page.Snapshot) {
	var buf bytes.Buffer
	err := h.tmpl.Execute(&buf, pageView{
		Lang:        h.deps.Localizer.Language(),
		Snapshot:    snapshot,
		SessionPath: SessionPath,
	})
	if err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
		http.Error(w, h.deps.Localizer.T("error.generic"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("Failed to write page", zap.Error(err))
	}
}
