package core

import "time"

// Export job lifecycle. Jobs are created pending by the server and driven
// to finished or failed by the worker.
const (
	ExportPending  = "pending"
	ExportRunning  = "running"
	ExportFinished = "finished"
	ExportFailed   = "failed"
)

// ExportJob tracks one requested export of the transaction history. Key is
// a random identifier; the output file is named "<key>-records.xml".
type ExportJob struct {
	ID         int64
	Key        string
	UserID     int64
	Status     string
	FileName   string
	CreatedAt  time.Time
	FinishedAt *time.Time
}
