package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Snapshotter persists graph states to disk, one file per iteration,
// grouped per run. Snapshot failures never abort a run; callers log and
// continue.
type Snapshotter struct {
	dir string
}

// NewSnapshotter creates a snapshotter rooted at dir. An empty dir
// disables snapshots.
func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{dir: dir}
}

// Enabled reports whether snapshots will be written.
func (s *Snapshotter) Enabled() bool {
	return s != nil && s.dir != ""
}

// Write stores the state as <dir>/run_<id>/iteration_<n>.json.
func (s *Snapshotter) Write(runID types.ID, iteration int, state State) error {
	if !s.Enabled() {
		return nil
	}

	runDir := filepath.Join(s.dir, "run_"+runID.String())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return types.WrapError(types.ErrRunSnapshotFailed, "failed to create snapshot directory", err)
	}

	data, err := state.MarshalIndented()
	if err != nil {
		return types.WrapError(types.ErrRunSnapshotFailed, "failed to encode snapshot", err)
	}

	path := filepath.Join(runDir, fmt.Sprintf("iteration_%d.json", iteration))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.WrapError(types.ErrRunSnapshotFailed, "failed to write snapshot file", err)
	}

	return nil
}
