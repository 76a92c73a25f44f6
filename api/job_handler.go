package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
)

func (a *API) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	docID, err := id.ParseDocumentID(req.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid document ID: %v", err)})
		return
	}

	j, err := a.eng.SubmitJob(c.Request.Context(), docID, req.Provider, req.FallbackProvider)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, j)
}

func (a *API) getJob(c *gin.Context) {
	jobID, err := id.ParseJobID(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid job ID: %v", err)})
		return
	}

	j, err := a.eng.GetJob(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, j)
}

func (a *API) listJobs(c *gin.Context) {
	var q listJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid query: %v", err)})
		return
	}

	status, err := parseStatus(q.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	jobs, err := a.eng.ListJobs(c.Request.Context(), job.ListOpts{
		Status: status,
		Limit:  defaultLimit(q.Limit),
		Offset: q.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (a *API) cancelJob(c *gin.Context) {
	jobID, err := id.ParseJobID(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid job ID: %v", err)})
		return
	}

	if err := a.eng.CancelJob(c.Request.Context(), jobID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseStatus validates an optional status filter. Empty means all.
func parseStatus(s string) (job.Status, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range job.Statuses() {
		if job.Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}
