package types

import (
	"context"
	"errors"
	"maps"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/killallgit/audio-recap/internal/services/sessions"
	"github.com/killallgit/audio-recap/internal/services/summarization"
	"github.com/killallgit/audio-recap/internal/services/transcription"
	"github.com/killallgit/audio-recap/pkg/download"
	apperrors "github.com/killallgit/audio-recap/pkg/errors"
)

// FromPipeline maps an error from the session pipeline (or the layers in
// front of it) to an AppError. The failing stage, when known, is attached
// as the "stage" detail.
func FromPipeline(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	appErr := classify(err)
	if stage := orchestrator.StageOf(err); stage != "" {
		clone := *appErr
		clone.Details = maps.Clone(appErr.Details)
		appErr = clone.WithDetail("stage", string(stage))
	}
	return appErr
}

func classify(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var (
		unsupported *orchestrator.UnsupportedFormatError
		tooLarge    *orchestrator.UploadTooLargeError
		stillLarge  *orchestrator.StillTooLargeError
		transcode   *audio.TranscodeError
		transcribe  *transcription.TranscriptionError
		session     *summarization.SessionError
		maxBytes    *http.MaxBytesError
	)

	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		return apperrors.Wrap(err, apperrors.ErrCodeBusy, messageOf(err))
	case errors.Is(err, orchestrator.ErrNoActiveConversation):
		return apperrors.Wrap(err, apperrors.ErrCodeNoConversation, messageOf(err))
	case errors.Is(err, sessions.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, sessions.ErrTooMany):
		appErr := apperrors.Wrap(err, apperrors.ErrCodeResourceExhaust, err.Error())
		appErr.HTTPCode = http.StatusServiceUnavailable
		return appErr
	case errors.As(err, &unsupported):
		return apperrors.Wrap(err, apperrors.ErrCodeUnsupportedFormat, unsupported.Error()).
			WithDetail("supported", audio.SupportedExtensions)
	case errors.Is(err, download.ErrNotAudio):
		return apperrors.Wrap(err, apperrors.ErrCodeUnsupportedFormat, messageOf(err))
	case errors.As(err, &tooLarge):
		return apperrors.Wrap(err, apperrors.ErrCodePayloadTooLarge, tooLarge.Error()).
			WithDetail("limit", tooLarge.Limit)
	case errors.Is(err, download.ErrTooLarge), errors.As(err, &maxBytes):
		return apperrors.Wrap(err, apperrors.ErrCodePayloadTooLarge, "audio file exceeds the size limit")
	case errors.As(err, &stillLarge):
		return apperrors.Wrap(err, apperrors.ErrCodeStillTooLarge, stillLarge.Error()).
			WithDetail("tier", stillLarge.Tier.String())
	case errors.Is(err, orchestrator.ErrEmptyAsset), errors.Is(err, orchestrator.ErrEmptyQuestion),
		errors.Is(err, download.ErrInvalidURL):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, messageOf(err))
	case errors.As(err, &transcode):
		return apperrors.Wrap(err, apperrors.ErrCodeTranscodeFailed, "audio could not be re-encoded")
	case errors.As(err, &transcribe):
		code := apperrors.ErrCodeTranscriptionFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperrors.ErrCodeAPITimeout
		}
		appErr := apperrors.Wrap(err, code, transcribe.Error())
		if transcribe.SegmentIndex >= 0 {
			appErr = appErr.WithDetail("segment", transcribe.SegmentIndex+1)
		}
		return appErr
	case errors.As(err, &session):
		return fromSessionError(err, session)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "internal error")
}

// FromFetch maps a remote fetch failure. Size, format and URL problems keep
// their pipeline codes; anything else is the remote host's fault.
func FromFetch(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, download.ErrTooLarge), errors.Is(err, download.ErrNotAudio), errors.Is(err, download.ErrInvalidURL):
		return classify(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "remote fetch timed out").
			WithDetail("service", "download")
	}
	return apperrors.ExternalServiceError("download", err)
}

// messageOf drops the stage prefix added by StageError.
func messageOf(err error) string {
	var stageErr *orchestrator.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Err.Error()
	}
	return err.Error()
}

func fromSessionError(err error, session *summarization.SessionError) *apperrors.AppError {
	code := apperrors.ErrCodeSessionProtocol
	switch session.Kind {
	case summarization.KindTransport:
		code = apperrors.ErrCodeSessionTransport
	case summarization.KindRemoteRejected:
		code = apperrors.ErrCodeSessionRejected
	}
	return apperrors.Wrap(err, code, session.Error()).WithDetail("kind", string(session.Kind))
}

// NewErrorResponse renders an AppError as a response body.
func NewErrorResponse(appErr *apperrors.AppError) ErrorResponse {
	resp := ErrorResponse{
		Status:  StatusError,
		Message: appErr.Message,
		Error:   string(appErr.Code),
	}
	details := make(map[string]any, len(appErr.Details))
	for k, v := range appErr.Details {
		if k == "stage" {
			resp.Stage, _ = v.(string)
			continue
		}
		details[k] = v
	}
	if len(details) > 0 {
		resp.Details = details
	}
	return resp
}

// SendError maps err and writes it as JSON.
func SendError(c *gin.Context, err error) {
	appErr := FromPipeline(err)
	c.JSON(appErr.GetHTTPCode(), NewErrorResponse(appErr))
}
