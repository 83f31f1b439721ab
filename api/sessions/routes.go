package sessions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
)

// RegisterRoutes registers session routes. The action middleware guards the
// endpoints that call the remote services.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, actionMiddleware gin.HandlerFunc) {
	// POST /api/v1/sessions - Start a new session
	router.POST("", Create(deps))

	// GET /api/v1/sessions/:id - Session state
	router.GET("/:id", Get(deps))

	// DELETE /api/v1/sessions/:id - Discard the session
	router.DELETE("/:id", Delete(deps))

	// POST /api/v1/sessions/:id/uploads - Summarize an audio file
	router.POST("/:id/uploads", actionMiddleware, PostUpload(deps))

	// POST /api/v1/sessions/:id/messages - Ask a follow-up question
	router.POST("/:id/messages", actionMiddleware, PostMessage(deps))

	// GET /api/v1/sessions/:id/messages - Conversation history
	router.GET("/:id/messages", GetMessages(deps))

	// DELETE /api/v1/sessions/:id/conversation - Start over
	router.DELETE("/:id/conversation", ResetConversation(deps))

	// GET /api/v1/sessions/:id/jobs - Upload job records
	router.GET("/:id/jobs", GetJobs(deps))
}
