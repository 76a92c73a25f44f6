package api

type errorResponse struct {
	Error string `json:"error"`
}

// CreateDocumentRequest registers an already-stored document with the
// pipeline. The file bytes themselves live behind StorageRef.
type CreateDocumentRequest struct {
	OriginalFilename string `json:"original_filename" binding:"required"`
	SizeBytes        int64  `json:"size_bytes" binding:"required,gt=0"`
	StorageRef       string `json:"storage_ref"`
}

// CreateJobRequest submits a summarization job for a document.
type CreateJobRequest struct {
	DocumentID       string `json:"document_id" binding:"required"`
	Provider         string `json:"provider" binding:"required"`
	FallbackProvider string `json:"fallback_provider"`
}

// EstimateRequest asks for a cost estimate without creating a job.
type EstimateRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Provider   string `json:"provider" binding:"required"`
}

type listJobsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type listDocumentsQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// GenerateDemoRequest asks the demo generator for count synthetic jobs.
type GenerateDemoRequest struct {
	Count int `json:"count"`
}

// GenerateDemoResponse reports the jobs created by the demo generator.
type GenerateDemoResponse struct {
	Created int      `json:"created"`
	JobIDs  []string `json:"job_ids"`
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
