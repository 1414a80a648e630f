package exporter

// Phase labels the stage an export run is currently in.
type Phase string

const (
	PhasePreparing   Phase = "preparing"
	PhaseProcessing  Phase = "processing"
	PhaseCompressing Phase = "compressing"
	PhaseComplete    Phase = "complete"
)

// Progress is emitted through the progress callback while an export runs.
type Progress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Phase       Phase  `json:"phase"`
	CurrentFile string `json:"current_file,omitempty"`
}

// ProgressFunc receives progress events. It is called from the exporting
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// Stats summarizes one export run.
type Stats struct {
	TotalGroups   int `json:"total_groups"`
	TotalImages   int `json:"total_images"`
	SkippedImages int `json:"skipped_images"`
}

// Result is the terminal value of one export run. Either the archive is
// complete and Success is true, or Success is false and no partial archive
// is returned; Stats are best-effort in the failure case.
type Result struct {
	Success      bool   `json:"success"`
	ArchiveBytes []byte `json:"-"`
	ArchiveName  string `json:"archive_name,omitempty"`
	Error        string `json:"error,omitempty"`
	Stats        Stats  `json:"stats"`
}
