package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	RetryURL string `json:"retry_url,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithCode adds a machine readable code the frontend can branch on.
func RespondWithCode(c *gin.Context, statusCode int, code, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
		Code:    code,
	})
}

// RespondWithRetry is used when the request may be repeated safely, for example a
// payment confirmation whose ticket could not be saved.
func RespondWithRetry(c *gin.Context, statusCode int, code, customMessage, retryURL string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:    HTTPStatusText(statusCode),
		Message:  customMessage,
		Code:     code,
		RetryURL: retryURL,
	})
}
