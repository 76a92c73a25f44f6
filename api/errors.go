package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/digest"
)

// writeError maps digest sentinel errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case isNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, digest.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, digest.ErrDuplicateJob),
		errors.Is(err, digest.ErrJobAlreadyExists),
		errors.Is(err, digest.ErrDocumentAlreadyExists),
		errors.Is(err, digest.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, digest.ErrJobNotFound) ||
		errors.Is(err, digest.ErrDocumentNotFound)
}
