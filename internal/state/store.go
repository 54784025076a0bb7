// Package state records ingestion run history in a small SQLite database,
// separate from the analytical store. The history survives database
// rotation and answers "when did we last load, and what".
package state

import "time"

// RunStatus is the lifecycle state of one pipeline invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusUpToDate  RunStatus = "up_to_date"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID             string
	SourceFileName string
	Status         RunStatus
	RowsLoaded     int64
	CatalogsLoaded int
	Error          string
	StartedAt      time.Time
	CompletedAt    *time.Time
}
