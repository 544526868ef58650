// ABOUTME: Tests for file and standard-input sources
// ABOUTME: Verifies file reads, stdin passthrough and cancellation
package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Connect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte("5 6 7"), 0644))

	rc, err := NewFile(path).Connect(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "5 6 7", string(body))
}

func TestFileSource_Stdin(t *testing.T) {
	src := NewFile(Stdin).WithStdin(strings.NewReader("42"))

	rc, err := src.Connect(context.Background())
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "42", string(body))
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "nope")).Connect(context.Background())
	assert.Error(t, err)
}

func TestFileSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFile(Stdin).Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
