package dto

// ExportRequest queues an asynchronous timetable or exam-plan export.
type ExportRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=blocks exams"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports the queued job.
type ExportJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// ExportDownloadResponse carries a signed URL for a completed export.
type ExportDownloadResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	URL       string `json:"url,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}
