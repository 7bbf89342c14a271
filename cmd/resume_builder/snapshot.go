package main

import (
	"fmt"
	"os"

	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

// loadSnapshot reads a snapshot file, checks it against the snapshot schema and parses it.
// An empty schemaPath uses the built-in schema.
func loadSnapshot(path, schemaPath string) (types.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return types.Snapshot{}, fmt.Errorf("snapshot file not found: %s", path)
	}

	if err := schemas.ValidateSnapshotFile(schemaPath, path); err != nil {
		return types.Snapshot{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	snap, err := types.ParseSnapshot(data)
	if err != nil {
		return types.Snapshot{}, err
	}
	return snap, nil
}
