// Package schemas holds the JSON Schema files shipped with the binary.
package schemas

import _ "embed"

// ResumeSnapshotPath is the repo-relative path of the snapshot schema.
const ResumeSnapshotPath = "schemas/resume_snapshot.schema.json"

// ResumeSnapshot is the snapshot schema document.
//
//go:embed resume_snapshot.schema.json
var ResumeSnapshot []byte
