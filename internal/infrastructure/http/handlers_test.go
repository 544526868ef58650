// ABOUTME: Tests for HTTP handlers
// ABOUTME: Verifies routing, methods and response formats
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/frame-extractor/internal/application/config"
	"github.com/harper/frame-extractor/internal/application/logging"
	"github.com/harper/frame-extractor/internal/application/manager"
	"github.com/harper/frame-extractor/internal/infrastructure/codec"
)

func newManager(t *testing.T) *manager.Manager {
	t.Helper()
	cfg := &config.Config{
		Streams: []config.StreamConfig{
			{
				ID:        "mic",
				Format:    "int16",
				Buffer:    config.BufferConfig{Capacity: 8},
				Frame:     config.FrameConfig{Size: 4, Overlap: 2},
				BlockSize: 1,
				Source:    config.SourceConfig{Path: "-"},
				Output:    config.OutputConfig{Path: "-"},
			},
			{
				ID:        "tap",
				Format:    "int16",
				Buffer:    config.BufferConfig{Capacity: 8},
				Frame:     config.FrameConfig{Size: 4, Overlap: 2},
				BlockSize: 1,
				Source:    config.SourceConfig{Path: "tap.txt"},
				Output:    config.OutputConfig{Kind: config.OutputMemory},
			},
		},
	}
	mgr, err := manager.NewFromConfig(cfg, logging.Discard(), manager.WithStdout(io.Discard))
	require.NoError(t, err)
	return mgr
}

func push(t *testing.T, mgr *manager.Manager, id string, tokens ...string) {
	t.Helper()
	var data []byte
	for _, tok := range tokens {
		b, err := codec.Int16.Encode(tok)
		require.NoError(t, err)
		data = append(data, b...)
	}
	_, err := mgr.Get(id).Push(data)
	require.NoError(t, err)
}

func TestStreamsHandler(t *testing.T) {
	mgr := newManager(t)
	push(t, mgr, "mic", "1", "2", "3", "4", "5")

	rec := httptest.NewRecorder()
	NewRouter(mgr).ServeHTTP(rec, httptest.NewRequest("GET", "/streams", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "mic", result[0]["id"])
	assert.Equal(t, "/mic/stats", result[0]["stats_url"])
	assert.Equal(t, float64(1), result[0]["frames"])
	assert.Equal(t, float64(1), result[0]["occupancy"])
	assert.Equal(t, "steady", result[0]["state"])
}

func TestStatsHandler(t *testing.T) {
	mgr := newManager(t)
	router := NewRouter(mgr)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/mic/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, float64(8), info["capacity"])
	assert.Equal(t, float64(4), info["frame_size"])
	assert.Equal(t, float64(2), info["overlap"])
	assert.Equal(t, "awaiting_first_frame", info["state"])

	for _, path := range []string{"/nonexistent/stats", "/mic/stats/extra", "/mic", "/x"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestFramesHandler(t *testing.T) {
	mgr := newManager(t)
	router := NewRouter(mgr)
	push(t, mgr, "tap", "1", "2", "3", "4", "5")

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		return rec
	}

	rec := get("/tap/frames")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"tap","pending":["5"],"frames":[{"seq":0,"values":["1","2","3","4"]}],"evicted":0}`, rec.Body.String())

	rec = get("/tap/frames")
	assert.JSONEq(t, `{"id":"tap","pending":["5"],"frames":[],"evicted":0}`, rec.Body.String(), "frames are drained")

	push(t, mgr, "mic", "7", "8")
	rec = get("/mic/frames")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"mic","pending":["7","8"],"frames":[],"evicted":0}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get("/other/frames").Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/tap/frames", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestResetHandler(t *testing.T) {
	mgr := newManager(t)
	router := NewRouter(mgr)
	push(t, mgr, "mic", "1", "2", "3")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/mic/reset", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 3, mgr.Get("mic").Stats().Occupancy)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/mic/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mgr.Get("mic").Stats().Occupancy)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/other/reset", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthzHandler(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
