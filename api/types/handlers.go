package types

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
)

// Handler utility functions to reduce duplication across handlers

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Error:   "VALIDATION",
			Details: map[string]any{"reason": err.Error()},
		})
		return false
	}
	return true
}

// LookupSession resolves the :id parameter, sending the error response
// when the session does not exist.
func LookupSession(c *gin.Context, deps *Dependencies) (*orchestrator.Session, bool) {
	session, err := deps.Sessions.Get(c.Param("id"))
	if err != nil {
		SendError(c, err)
		return nil, false
	}
	return session, true
}

// WantsEventStream reports whether the client asked for server-sent events.
func WantsEventStream(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, "text/event-stream") == "text/event-stream"
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK returns a BaseResponse with StatusOK.
func OK(message string) BaseResponse {
	return BaseResponse{Status: StatusOK, Message: message}
}
