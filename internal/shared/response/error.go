// Package response defines the error payload shape shared by every HTTP
// surface of the service.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body. Error carries a stable,
// machine-readable code; Details is optional structured context such as a
// bulk skip list.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, status int, code string) {
	c.JSON(status, ErrorResponse{Error: code})
}

// ErrorWithDetails sends an error response with structured context.
func ErrorWithDetails(c *gin.Context, status int, code string, details any) {
	c.JSON(status, ErrorResponse{Error: code, Details: details})
}

// AbortUnauthorized rejects the request with 401 and stops the handler chain.
func AbortUnauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: code})
}
