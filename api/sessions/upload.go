package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	apperrors "github.com/killallgit/audio-recap/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PostUpload summarizes an audio file sent as the multipart "file" part, or
// fetched from the "url" form field.
func PostUpload(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := types.LookupSession(c, deps)
		if !ok {
			return
		}
		if session.Busy() {
			types.SendError(c, orchestrator.ErrBusy)
			return
		}

		upload, err := readUpload(c, deps)
		if err != nil {
			types.SendError(c, err)
			return
		}

		log := deps.Log().WithFields(logrus.Fields{
			"session_id": session.ID(),
			"file":       upload.Asset.Name,
			"source":     upload.Source,
		})
		log.Info("Upload received")

		if types.WantsEventStream(c) {
			stream := openEventStream(c)
			result, err := session.NewUpload(c.Request.Context(), upload, stream.progress)
			if err != nil {
				stream.fail(err)
				return
			}
			stream.send(EventTranscript, gin.H{"text": result.Transcript})
			stream.send(EventAnswer, result)
			return
		}

		result, err := session.NewUpload(c.Request.Context(), upload, nil)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.UploadResponse{
			BaseResponse: types.OK("Audio summarized"),
			Result:       result,
		})
	}
}

func readUpload(c *gin.Context, deps *types.Dependencies) (orchestrator.Upload, error) {
	upload := orchestrator.Upload{Instruction: c.PostForm("instruction")}

	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return upload, err
	}
	if err == nil {
		if deps.MaxUploadSize > 0 && header.Size > deps.MaxUploadSize {
			return upload, &orchestrator.UploadTooLargeError{Size: header.Size, Limit: deps.MaxUploadSize}
		}
		f, err := header.Open()
		if err != nil {
			return upload, fmt.Errorf("opening upload: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return upload, fmt.Errorf("reading upload: %w", err)
		}
		upload.Asset = audio.NewAsset(header.Filename, data)
		upload.Source = models.JobSourceUpload
		return upload, nil
	}

	rawURL := strings.TrimSpace(c.PostForm("url"))
	if rawURL == "" {
		return upload, apperrors.MissingFieldError("file")
	}
	if deps.Fetcher == nil {
		return upload, apperrors.ValidationError("url", "remote fetch is disabled")
	}

	asset, err := fetchAsset(c.Request.Context(), deps.Fetcher, rawURL)
	if err != nil {
		return upload, err
	}
	upload.Asset = asset
	upload.Source = models.JobSourceURL
	return upload, nil
}

func fetchAsset(ctx context.Context, fetcher types.Fetcher, rawURL string) (audio.Asset, error) {
	res, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return audio.Asset{}, types.FromFetch(err)
	}
	return audio.NewAsset(res.Name, res.Data), nil
}
