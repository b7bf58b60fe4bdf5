// Package session persists per-stage pipeline artifacts for observability.
// Each stage's output lands under <root>/<session-id>/ as both a structured
// JSON file and a human-readable text file, and is mirrored into the
// discovery-evidence table when a database is attached. The recorder is a
// pure side effect: every failure is logged to stderr and swallowed, it
// must never fail the pipeline.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonathan/talent-sourcer/internal/db"
)

// Stage names used for artifact files and evidence rows.
const (
	StageDiscovery  = "discovery"
	StagePreview    = "preview"
	StageCollection = "collection"
	StageEvaluation = "evaluation"
)

// Recorder writes stage artifacts for one session.
type Recorder struct {
	root      string
	sessionID uuid.UUID
	db        *db.DB // optional; nil disables evidence mirroring
}

// NewRecorder creates a recorder rooted at dir. An empty root falls back to
// "artifacts" in the working directory. The database is optional.
func NewRecorder(root string, sessionID uuid.UUID, database *db.DB) *Recorder {
	if root == "" {
		root = "artifacts"
	}
	return &Recorder{root: root, sessionID: sessionID, db: database}
}

// Dir returns the session-scoped artifact directory.
func (r *Recorder) Dir() string {
	return filepath.Join(r.root, r.sessionID.String())
}

// Record persists one stage's artifact. The artifact is written as indented
// JSON to <stage>.json; humanText, when non-empty, is written to <stage>.txt.
// An evidence row is appended when a database is attached. All failures are
// logged and ignored.
func (r *Recorder) Record(ctx context.Context, stage string, artifact any, humanText string) {
	dir := r.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[SESSION] failed to create artifact dir %s: %v", dir, err)
		return
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Printf("[SESSION] failed to marshal %s artifact: %v", stage, err)
	} else {
		path := filepath.Join(dir, stage+".json")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			log.Printf("[SESSION] failed to write %s: %v", path, err)
		}
	}

	if humanText != "" {
		path := filepath.Join(dir, stage+".txt")
		if err := os.WriteFile(path, []byte(humanText+"\n"), 0o644); err != nil {
			log.Printf("[SESSION] failed to write %s: %v", path, err)
		}
	}

	if r.db != nil {
		if err := r.db.AppendEvidence(ctx, r.sessionID, stage, artifact); err != nil {
			log.Printf("[SESSION] failed to append %s evidence: %v", stage, err)
		}
	}
}

// ReadArtifact loads a previously recorded JSON artifact into out. Used by
// later stages that replay an earlier stage's output.
func (r *Recorder) ReadArtifact(stage string, out any) error {
	path := filepath.Join(r.Dir(), stage+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s artifact: %w", stage, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s artifact: %w", stage, err)
	}
	return nil
}
