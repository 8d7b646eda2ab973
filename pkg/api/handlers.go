package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/health"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/render"
)

// Snapshot size bounds in SVG user units.
const (
	DefaultSnapshotWidth  = 800
	DefaultSnapshotHeight = 400
	MaxSnapshotSide       = 4096
	snapshotPadding       = 20
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status       health.Status `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	Uptime       string        `json:"uptime"`
	Nodes        int           `json:"nodes"`
	Links        int           `json:"links"`
	CacheEntries int           `json:"cache_entries"`
	Notices      NoticeCounts  `json:"notices"`
	Feed         *FeedResponse `json:"feed,omitempty"`

	Checks map[string]health.Check `json:"checks"`
}

// NoticeCounts counts geometry notices seen since start.
type NoticeCounts struct {
	Updated uint64 `json:"updated"`
	Removed uint64 `json:"removed"`
	Cleared uint64 `json:"cleared"`
}

// FeedResponse reports the event feed.
type FeedResponse struct {
	Applied uint64 `json:"applied"`
	Lost    uint64 `json:"lost"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	report := s.opts.Health.Check()
	resp := HealthResponse{
		Status:       report.Status,
		Timestamp:    time.Now(),
		Uptime:       time.Since(s.startTime).String(),
		Nodes:        s.opts.Network.Len(),
		Links:        len(s.opts.Network.Links()),
		CacheEntries: s.opts.Cache.Size(),
		Notices: NoticeCounts{
			Updated: s.updated.Load(),
			Removed: s.removed.Load(),
			Cleared: s.cleared.Load(),
		},
		Checks: report.Checks,
	}
	if s.opts.Feed != nil {
		resp.Feed = &FeedResponse{Applied: s.opts.Feed.Applied(), Lost: s.opts.Feed.Lost()}
	}
	s.respondJSON(w, health.StatusCode(report.Status, false), resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	width, err := sideParam(r, "w", DefaultSnapshotWidth)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	height, err := sideParam(r, "h", DefaultSnapshotHeight)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	scene := render.NewScene(s.opts.Collector, s.opts.Network.Nodes(),
		float64(width), float64(height), snapshotPadding)

	var buf bytes.Buffer
	if err := render.WriteSVG(&buf, scene.Segments, scene.Nodes, scene.Viewport); err != nil {
		s.log.Error("snapshot render failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type paramError struct{ name, value string }

func (e paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value) +
		" (want 1.." + strconv.Itoa(MaxSnapshotSide) + ")"
}

func sideParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > MaxSnapshotSide {
		return 0, paramError{name: name, value: raw}
	}
	return v, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("encoding JSON response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
