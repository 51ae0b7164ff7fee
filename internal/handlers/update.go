package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/services"
)

type UpdateHandler struct {
	updateService services.UpdateService
}

func NewUpdateHandler(updateService services.UpdateService) *UpdateHandler {
	return &UpdateHandler{updateService: updateService}
}

func (uh *UpdateHandler) RequestUpdate(c *gin.Context) {
	var req services.UpdateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}

	row, err := uh.updateService.Request(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Respond(c, http.StatusAccepted, gin.H{
		"status":    row.Status,
		"update_id": row.ID.String(),
	})
}

func (uh *UpdateHandler) GetUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("update_id"))
	if err != nil {
		RespondError(c, apierr.Validation("update_id must be a valid uuid."))
		return
	}

	row, err := uh.updateService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	Respond(c, http.StatusOK, row)
}
