package constants

// JobStatus is the canonical status of a queued W-2 document.
type JobStatus string

// Stable values (reported by batch runs and the watch loop).
const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusExtracted JobStatus = "EXTRACTED" // validated record produced and stored
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
