package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/services"
)

type ActionHandler struct {
	actionService services.ActionService
}

func NewActionHandler(actionService services.ActionService) *ActionHandler {
	return &ActionHandler{actionService: actionService}
}

func (ah *ActionHandler) RequestAction(c *gin.Context) {
	var req services.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := ah.actionService.RequestAction(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Respond(c, http.StatusCreated, resp)
}
