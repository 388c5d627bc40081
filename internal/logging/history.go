package logging

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// historyWriter decodes zerolog JSON events into Entries.
type historyWriter struct {
	l *Logger
}

func (w historyWriter) Write(p []byte) (int, error) {
	var ev struct {
		Time      string `json:"time"`
		Level     string `json:"level"`
		Component string `json:"component"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(p, &ev); err != nil {
		return len(p), nil
	}
	ts := time.Now().Format("15:04:05.000")
	if t, err := time.Parse(time.RFC3339, ev.Time); err == nil {
		ts = t.Format("15:04:05")
	}
	w.l.record(Entry{Timestamp: ts, Level: ev.Level, Component: ev.Component, Message: ev.Message})
	return len(p), nil
}

// HistoryResponse is the body served by HistoryHandler.
type HistoryResponse struct {
	Path    string  `json:"path,omitempty"`
	Entries []Entry `json:"entries"`
}

// HistoryHandler serves recent entries as JSON. ?limit=N caps the count,
// defaulting to limit.
func (l *Logger) HistoryHandler(limit int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := limit
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			n = parsed
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HistoryResponse{Path: l.LogPath(), Entries: l.History(n)})
	})
}
