package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	"github.com/distr1/buildset"
)

// recordResult persists the build set's outcome under dir, atomically
// (renameio writes to a temp file and renames into place so a concurrent
// reader never observes a half-written file), and symlinks dir/latest.json to
// the new record. This mirrors cmd/autobuilder's renameio.Symlink update of
// the "latest built commit" pointer on success, generalized to record every
// outcome rather than only successes.
func recordResult(dir string, source buildset.SourceStamp, result buildset.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	type record struct {
		Revision   string    `json:"revision"`
		Branch     string    `json:"branch"`
		Result     string    `json:"result"`
		RecordedAt time.Time `json:"recorded_at"`
	}
	rec := record{
		Revision:   source.Revision,
		Branch:     source.Branch,
		Result:     result.String(),
		RecordedAt: time.Now(),
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	name := source.Revision
	if name == "" {
		name = "unknown"
	}
	target := filepath.Join(dir, name+".json")
	if err := renameio.WriteFile(target, b, 0644); err != nil {
		return err
	}
	return renameio.Symlink(name+".json", filepath.Join(dir, "latest.json"))
}
