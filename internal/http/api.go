package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"audioflow/pkg/audiometa"
	"audioflow/pkg/validator"
)

type errorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Errors  []validator.FieldError `json:"errors,omitempty"`
}

// handleGetAudio answers lookups in the same wire format RemoteLookup consumes,
// so one instance can serve as another's remote endpoint.
func (h *Handler) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	if !h.allow(routeLookup, r) {
		h.deps.Metrics.RecordLookup("rate_limited")
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Message: h.deps.Localizer.T("error.rate_limited"),
		})
		return
	}

	var req audiometa.Request
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		h.deps.Metrics.RecordLookup("bad_request")
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "empty request body"
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: msg})
		return
	}

	if fieldErrs, ok := h.validate.Validate(req); !ok {
		h.deps.Metrics.RecordLookup("bad_request")
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "invalid request",
			Errors:  fieldErrs,
		})
		return
	}

	result := h.resolve(r.Context(), routeLookup, req.UniqueID)
	outcome := "found"
	switch {
	case result.Fallback:
		outcome = "fallback"
	case !result.Success:
		outcome = "failed"
	}
	h.deps.Metrics.RecordLookup(outcome)

	h.logger.Debug("Lookup served",
		zap.String("unique_id", req.UniqueID),
		zap.String("outcome", outcome))

	h.writeJSON(w, http.StatusOK, result)
}
