package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/banditserve-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError translates any service error into the stable wire envelope.
// Unclassified errors come out as 500s; raw internals never leak verbatim
// status codes to the client.
func RespondError(c *gin.Context, err error) {
	status, code := apierr.StatusOf(err)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func Respond(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
