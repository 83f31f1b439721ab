package sessions

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/services/jobs"
	apperrors "github.com/killallgit/audio-recap/pkg/errors"
)

// GetJobs lists the upload job records of a session, newest first
func GetJobs(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}

		limit := jobs.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				types.SendError(c, apperrors.ValidationError("limit", "must be a positive integer"))
				return
			}
			limit = n
		}

		resp := types.JobsResponse{BaseResponse: types.OK("Jobs retrieved"), Jobs: []types.Job{}}
		if deps.JobService != nil {
			records, err := deps.JobService.ListForSession(c.Request.Context(), session.ID(), limit)
			if err != nil {
				types.SendError(c, apperrors.DatabaseError("list jobs", err))
				return
			}
			resp.Jobs = types.NewJobs(records)
		}
		resp.Count = len(resp.Jobs)
		types.SendSuccess(c, resp)
	}
}
