package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meltforce/repflow/internal/engine"
)

// handleSessionEvents streams engine snapshots over SSE: one "snapshot" event
// per state change or timer tick. The stream ends when the client disconnects
// or the session completes.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := e.Subscribe()
	defer e.Unsubscribe(ch)

	// Send the current state immediately so clients render without waiting
	// for the next tick.
	writeSnapshotEvent(w, e.Snapshot())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			writeSnapshotEvent(w, snap)
			flusher.Flush()

			if snap.Phase == engine.PhaseCompleted {
				return
			}
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap engine.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
}
