package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeEmailExists         = 40002
	CodeUnsupportedType     = 40003
	CodeMessageEmpty        = 40004
	CodeNoDocumentSelected  = 40005
	CodeNoActiveSession     = 40006
	CodeUnknownTier         = 40007
	CodeUnauthorized        = 40100
	CodeInvalidCredentials  = 40101
	CodeSessionExpired      = 40102
	CodeInsufficientCredits = 40201
	CodeForbidden           = 40300
	CodeInvalidSignature    = 40301
	CodeSessionNotFound     = 40401
	CodeDocumentNotFound    = 40402
	CodeOrderNotFound       = 40403
	CodeReplyPending        = 40901
	CodePayloadTooLarge     = 41300
	CodeInternalServer      = 50000
	CodeBackendFailure      = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

// Accepted reports work that finishes after the response is sent.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{
		Code:    CodeOK,
		Message: "accepted",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
