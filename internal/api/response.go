package api

import (
	"net/http"

	apperrors "menu-scorecard/internal/common/errors"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API route answers with.
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

type Meta struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

const codeOK = "OK"

func Success(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, data)
}

func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Meta: Meta{Code: codeOK, Message: http.StatusText(status)},
		Data: data,
	})
}

// Fail writes err with its mapped status and aborts the chain.
func Fail(c *gin.Context, status int, err *apperrors.StandardError) {
	c.AbortWithStatusJSON(status, Response{
		Meta: Meta{
			Code:     string(err.Code),
			Message:  err.Message,
			Details:  err.Details,
			Metadata: err.Metadata,
		},
	})
}
