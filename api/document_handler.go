package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
)

func (a *API) createDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	d, err := a.eng.CreateDocument(c.Request.Context(), req.OriginalFilename, req.SizeBytes, req.StorageRef)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, d)
}

func (a *API) getDocument(c *gin.Context) {
	docID, err := id.ParseDocumentID(c.Param("documentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid document ID: %v", err)})
		return
	}

	d, err := a.eng.GetDocument(c.Request.Context(), docID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (a *API) listDocuments(c *gin.Context) {
	var q listDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid query: %v", err)})
		return
	}

	docs, err := a.eng.ListDocuments(c.Request.Context(), document.ListOpts{
		Limit:  defaultLimit(q.Limit),
		Offset: q.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}
