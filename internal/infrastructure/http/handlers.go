// ABOUTME: HTTP handlers for stream status endpoints
// ABOUTME: Implements stream listing, per-stream stats, frames, reset and health check routes
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/harper/frame-extractor/internal/application/manager"
	"github.com/harper/frame-extractor/internal/domain/stream"
)

type streamInfo struct {
	ID            string `json:"id"`
	Instance      string `json:"instance"`
	StatsURL      string `json:"stats_url"`
	SamplesIn     uint64 `json:"samples_in"`
	Retained      uint64 `json:"retained"`
	Dropped       uint64 `json:"dropped"`
	Frames        uint64 `json:"frames"`
	Occupancy     int    `json:"occupancy"`
	Capacity      int    `json:"capacity"`
	FrameSize     int    `json:"frame_size"`
	Overlap       int    `json:"overlap"`
	State         string `json:"state"`
	SourceHealthy bool   `json:"sourceHealthy"`
}

func toInfo(st stream.Stats) streamInfo {
	return streamInfo{
		ID:            st.ID,
		Instance:      st.Instance,
		StatsURL:      fmt.Sprintf("/%s/stats", st.ID),
		SamplesIn:     st.SamplesIn,
		Retained:      st.Retained,
		Dropped:       st.Dropped,
		Frames:        st.Frames,
		Occupancy:     st.Occupancy,
		Capacity:      st.Capacity,
		FrameSize:     st.FrameSize,
		Overlap:       st.Overlap,
		State:         st.State,
		SourceHealthy: st.SourceHealthy,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// streamFor resolves /{stream}/{action} paths.
func streamFor(mgr *manager.Manager, r *http.Request, action string) *stream.Stream {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[1] != action {
		return nil
	}
	return mgr.Get(parts[0])
}

type StreamsHandler struct {
	mgr *manager.Manager
}

func NewStreamsHandler(mgr *manager.Manager) *StreamsHandler {
	return &StreamsHandler{mgr: mgr}
}

func (h *StreamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	streams := h.mgr.List()
	result := make([]streamInfo, 0, len(streams))
	for _, st := range streams {
		result = append(result, toInfo(st.Stats()))
	}
	writeJSON(w, result)
}

type StatsHandler struct {
	mgr *manager.Manager
}

func NewStatsHandler(mgr *manager.Manager) *StatsHandler {
	return &StatsHandler{mgr: mgr}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := streamFor(h.mgr, r, "stats")
	if st == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, toInfo(st.Stats()))
}

type ResetHandler struct {
	mgr *manager.Manager
}

func NewResetHandler(mgr *manager.Manager) *ResetHandler {
	return &ResetHandler{mgr: mgr}
}

func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := streamFor(h.mgr, r, "reset")
	if st == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st.Reset()
	writeJSON(w, toInfo(st.Stats()))
}

type frameInfo struct {
	Seq    uint64   `json:"seq"`
	Values []string `json:"values"`
}

type framesResponse struct {
	ID      string      `json:"id"`
	Pending []string    `json:"pending"`
	Frames  []frameInfo `json:"frames"`
	Evicted uint64      `json:"evicted"`
}

// FramesHandler drains frames kept by a memory output. Streams writing
// elsewhere report their pending samples and an empty frame list.
type FramesHandler struct {
	mgr *manager.Manager
}

func NewFramesHandler(mgr *manager.Manager) *FramesHandler {
	return &FramesHandler{mgr: mgr}
}

func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := streamFor(h.mgr, r, "frames")
	if st == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format, _ := h.mgr.Format(st.ID())
	resp := framesResponse{
		ID:      st.ID(),
		Pending: format.DecodeAll(st.Pending()),
		Frames:  []frameInfo{},
	}
	if c := h.mgr.Collector(st.ID()); c != nil {
		for _, f := range c.Drain() {
			resp.Frames = append(resp.Frames, frameInfo{Seq: f.Seq, Values: format.DecodeAll(f.Data)})
		}
		resp.Evicted = c.Evicted()
	}
	writeJSON(w, resp)
}

func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	type response struct {
		OK bool `json:"ok"`
	}

	writeJSON(w, response{OK: true})
}

// NewRouter wires every status route onto one handler.
func NewRouter(mgr *manager.Manager) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/streams", NewStreamsHandler(mgr))
	mux.HandleFunc("/healthz", HealthzHandler)

	stats := NewStatsHandler(mgr)
	frames := NewFramesHandler(mgr)
	reset := NewResetHandler(mgr)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/stats"):
			stats.ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/frames"):
			frames.ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/reset"):
			reset.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}
