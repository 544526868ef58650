// ABOUTME: Tests for the status server startup
// ABOUTME: Verifies listen failures are reported to the caller
package main

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harper/frame-extractor/internal/application/config"
	"github.com/harper/frame-extractor/internal/application/logging"
	"github.com/harper/frame-extractor/internal/application/manager"
)

func TestServeStatus_ReportsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	cfg := &config.Config{Streams: []config.StreamConfig{{
		ID:        "s",
		Format:    "int16",
		Buffer:    config.BufferConfig{Capacity: 4},
		Frame:     config.FrameConfig{Size: 2},
		BlockSize: 1,
		Source:    config.SourceConfig{Path: "-"},
	}}}
	mgr, err := manager.NewFromConfig(cfg, logging.Discard(), manager.WithStdout(io.Discard))
	require.NoError(t, err)

	srv, errc := serveStatus(context.Background(), config.ListenConfig{Host: "127.0.0.1", Port: port}, mgr, logging.Discard())
	defer srv.Close()

	select {
	case err := <-errc:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen error was not reported")
	}
}
