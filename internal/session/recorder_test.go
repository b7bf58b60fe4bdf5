package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesJSONAndText(t *testing.T) {
	root := t.TempDir()
	sessionID := uuid.New()
	r := NewRecorder(root, sessionID, nil)

	artifact := map[string]any{"companies": []string{"Acme", "Widgetco"}}
	r.Record(context.Background(), StageDiscovery, artifact, "Total: 2")

	jsonPath := filepath.Join(root, sessionID.String(), "discovery.json")
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Acme")

	txtPath := filepath.Join(root, sessionID.String(), "discovery.txt")
	text, err := os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Equal(t, "Total: 2\n", string(text))
}

func TestRecord_NoTextFileWhenEmpty(t *testing.T) {
	root := t.TempDir()
	sessionID := uuid.New()
	r := NewRecorder(root, sessionID, nil)

	r.Record(context.Background(), StagePreview, []string{"e-1"}, "")

	_, err := os.Stat(filepath.Join(root, sessionID.String(), "preview.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, sessionID.String(), "preview.json"))
	assert.NoError(t, err)
}

func TestRecord_FailureIsSwallowed(t *testing.T) {
	// A root that cannot be created must not panic or error out
	r := NewRecorder("/proc/definitely/not/writable", uuid.New(), nil)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), StageDiscovery, "data", "text")
	})
}

func TestReadArtifact_RoundTrip(t *testing.T) {
	root := t.TempDir()
	sessionID := uuid.New()
	r := NewRecorder(root, sessionID, nil)

	r.Record(context.Background(), StageCollection, map[string]int{"cache_hits": 3}, "")

	var got map[string]int
	require.NoError(t, r.ReadArtifact(StageCollection, &got))
	assert.Equal(t, 3, got["cache_hits"])
}

func TestReadArtifact_Missing(t *testing.T) {
	r := NewRecorder(t.TempDir(), uuid.New(), nil)

	var got map[string]int
	assert.Error(t, r.ReadArtifact(StageEvaluation, &got))
}
