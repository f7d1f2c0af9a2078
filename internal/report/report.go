// Package report writes pass outcomes and workspace exports to disk so a run
// leaves an auditable trail next to the database changes it made.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
)

// Writer persists reports under a base directory, one file per report.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "reports"
	}
	return &Writer{dir: dir}
}

// Dir returns the base report directory.
func (w *Writer) Dir() string { return w.dir }

// WriteJSON marshals v into <dir>/<name>-<timestamp>.json and returns the
// written path.
func (w *Writer) WriteJSON(name string, v any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create directory")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "report: marshal %s", name)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.json", name, time.Now().UTC().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write %s", path)
	}

	zap.L().Info("report written",
		zap.String("component", "report"),
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return path, nil
}

// PassSummary is the JSON report for one engine run.
type PassSummary struct {
	WorkspaceID string          `json:"workspace_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Runs        []model.PassRun `json:"runs"`
}

// WritePassSummary writes the run log slice for one engine invocation.
func (w *Writer) WritePassSummary(workspaceID string, runs []model.PassRun) (string, error) {
	return w.WriteJSON("passes", PassSummary{
		WorkspaceID: workspaceID,
		GeneratedAt: time.Now().UTC(),
		Runs:        runs,
	})
}

// Backup snapshots entities to JSON before a destructive operation. The kind
// becomes part of the file name.
func (w *Writer) Backup(kind string, entities any) (string, error) {
	return w.WriteJSON("backup-"+kind, entities)
}
