package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salesiq/backend/internal/domain/shared"
	"github.com/salesiq/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response with the payload as-is. Report payloads
// already carry their own success flag, so there is no extra envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, detail string) {
	c.JSON(statusCode, dto.NewErrorResponse(detail))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, detail string) {
	h.Error(c, http.StatusBadRequest, detail)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, detail string) {
	h.Error(c, http.StatusInternalServerError, detail)
}

// HandleError converts domain errors to HTTP responses, deriving the
// status code from the domain error code. Unknown error types become
// plain 500s carrying the error text, matching what clients of the
// previous deployment already parse.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Message)
		return
	}

	h.InternalError(c, err.Error())
}
