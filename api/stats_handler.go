package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/digest/demo"
	"github.com/xraph/digest/id"
)

func (a *API) stats(c *gin.Context) {
	snap, err := a.eng.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, a.eng.Providers().List())
}

func (a *API) estimateCost(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	docID, err := id.ParseDocumentID(req.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid document ID: %v", err)})
		return
	}

	est, err := a.eng.EstimateCost(c.Request.Context(), docID, req.Provider)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, est)
}

func (a *API) generateDemoJobs(c *gin.Context) {
	var req GenerateDemoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}

	gen := demo.New(a.eng, nil, demo.WithLogger(a.logger))
	jobs, err := gen.Generate(c.Request.Context(), req.Count)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := GenerateDemoResponse{Created: len(jobs)}
	for _, j := range jobs {
		resp.JobIDs = append(resp.JobIDs, j.ID.String())
	}
	c.JSON(http.StatusCreated, resp)
}
