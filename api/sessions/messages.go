package sessions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
)

// PostMessage asks a follow-up question in the active conversation
func PostMessage(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}

		var req types.MessageRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		if session.Busy() {
			types.SendError(c, orchestrator.ErrBusy)
			return
		}

		if types.WantsEventStream(c) {
			stream := openEventStream(c)
			reply, err := session.FollowUp(c.Request.Context(), req.Question, stream.progress)
			if err != nil {
				stream.fail(err)
				return
			}
			stream.send(EventAnswer, reply)
			return
		}

		reply, err := session.FollowUp(c.Request.Context(), req.Question, nil)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ReplyResponse{
			BaseResponse: types.OK("Answered"),
			Reply:        reply,
		})
	}
}

// GetMessages returns the displayed conversation history
func GetMessages(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}
		types.SendSuccess(c, types.MessagesResponse{
			BaseResponse:   types.OK("Messages retrieved"),
			ConversationID: session.ConversationID(),
			Messages:       types.NewMessages(session.Messages()),
		})
	}
}

// ResetConversation returns the session to idle, discarding its history
func ResetConversation(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}
		if err := session.Reset(); err != nil {
			types.SendError(c, err)
			return
		}

		deps.Log().WithField("session_id", session.ID()).Info("Conversation reset")
		types.SendSuccess(c, types.SessionResponse{
			BaseResponse: types.OK("Conversation reset"),
			Session:      types.NewSession(session),
		})
	}
}
