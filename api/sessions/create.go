package sessions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
)

// Create registers a new idle session
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := deps.Sessions.Create()
		if err != nil {
			deps.Log().WithError(err).Warn("Failed to create session")
			types.SendError(c, err)
			return
		}

		deps.Log().WithField("session_id", session.ID()).Info("Session created")
		types.SendCreated(c, types.SessionResponse{
			BaseResponse: types.OK("Session created"),
			Session:      types.NewSession(session),
		})
	}
}

// Get returns the state of one session
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}
		types.SendSuccess(c, types.SessionResponse{
			BaseResponse: types.OK("Session found"),
			Session:      types.NewSession(session),
		})
	}
}

// Delete discards a session and its conversation
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deps.Sessions.Delete(id); err != nil {
			types.SendError(c, err)
			return
		}

		deps.Log().WithField("session_id", id).Info("Session deleted")
		types.SendSuccess(c, types.OK("Session deleted"))
	}
}
