package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/banditserve-backend/internal/apierr"
	"github.com/yungbote/banditserve-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) AddUser(c *gin.Context) {
	var body struct {
		UserID *string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.Validation("user_id is required."))
		return
	}
	userID := ""
	if body.UserID != nil {
		userID = *body.UserID
	}

	user, err := uh.userService.Register(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Respond(c, http.StatusCreated, gin.H{
		"user_id": user.UserID,
		"message": "User added successfully.",
	})
}
