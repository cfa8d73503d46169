package chi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// SearchStream handles POST /v1/requests/{requestID}/search/stream.
// Events are framed as server-sent events: one "data: <json>" block per
// provider as it settles, then a terminal complete event with the merged
// summary. Client disconnect cancels the search.
func (s *Server) SearchStream(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.requestID(w, r)
	if !ok {
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming not supported")
		return
	}

	events, err := s.search.SearchStream(r.Context(), requestID, body.Intent, body.Providers)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tells buffering reverse proxies to pass events through immediately
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encode stream event", zap.Error(err))
			continue
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
