package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/services"
)

type OutcomeHandler struct {
	outcomeService services.OutcomeService
}

func NewOutcomeHandler(outcomeService services.OutcomeService) *OutcomeHandler {
	return &OutcomeHandler{outcomeService: outcomeService}
}

func (oh *OutcomeHandler) UploadData(c *gin.Context) {
	var req services.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}

	if _, err := oh.outcomeService.UploadData(c.Request.Context(), req); err != nil {
		RespondError(c, err)
		return
	}

	Respond(c, http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Data uploaded successfully.",
	})
}
