package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
	"github.com/noah-isme/attendance-report-api/pkg/response"
)

type studentChangeSubmitter interface {
	Submit(ctx context.Context, event dto.StudentChangeEvent) (*dto.StudentChangeAccepted, error)
}

// StudentChangeHandler receives student change events and keeps the fact cache in sync.
type StudentChangeHandler struct {
	sync studentChangeSubmitter
}

// NewStudentChangeHandler constructs the handler.
func NewStudentChangeHandler(sync studentChangeSubmitter) *StudentChangeHandler {
	return &StudentChangeHandler{sync: sync}
}

// Submit godoc
// @Summary Apply a students table change event to the cache
// @Tags Internal
// @Accept json
// @Produce json
// @Param payload body dto.StudentChangeEvent true "Change event; a null after deletes the student"
// @Success 202 {object} response.Envelope{data=dto.StudentChangeAccepted}
// @Failure 400 {object} response.Envelope
// @Router /internal/cdc/students [post]
func (h *StudentChangeHandler) Submit(c *gin.Context) {
	if h.sync == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var event dto.StudentChangeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change event"))
		return
	}
	accepted, err := h.sync.Submit(c.Request.Context(), event)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}
