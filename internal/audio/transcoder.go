package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/killallgit/audio-recap/pkg/ffmpeg"
	"github.com/sirupsen/logrus"
)

// OutputExt is the container every re-encoded asset is written in.
const OutputExt = "mp3"

// TempPrefix names the scratch directories the transcoder creates.
const TempPrefix = "transcode_"

// Codec is the external audio codec capability.
type Codec interface {
	GetMetadata(ctx context.Context, path string) (*ffmpeg.AudioMetadata, error)
	Transcode(ctx context.Context, input, output string, opts ffmpeg.EncodeOptions) error
}

// TranscodeError reports a decode or encode failure for one asset.
type TranscodeError struct {
	Asset string
	Tier  Tier
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %q at tier %s: %v", e.Asset, e.Tier, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// Transcoder applies a CompressionPlan to an Asset.
type Transcoder struct {
	codec   Codec
	tempDir string
	logger  logrus.FieldLogger
}

// NewTranscoder creates a transcoder that keeps its scratch files under tempDir
// (os.TempDir when empty).
func NewTranscoder(codec Codec, tempDir string, logger logrus.FieldLogger) *Transcoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Transcoder{
		codec:   codec,
		tempDir: tempDir,
		logger:  logger.WithField("component", "transcoder"),
	}
}

// Transcode re-encodes asset per plan. A plan with TierNone returns asset
// untouched. The result is not checked against any ceiling.
func (t *Transcoder) Transcode(ctx context.Context, asset Asset, plan CompressionPlan) (Asset, error) {
	if !plan.NeedsTranscode() {
		return asset, nil
	}

	fail := func(err error) (Asset, error) {
		return Asset{}, &TranscodeError{Asset: asset.Name, Tier: plan.Tier, Err: err}
	}

	if t.tempDir != "" {
		if err := os.MkdirAll(t.tempDir, 0o755); err != nil {
			return fail(fmt.Errorf("preparing temp dir: %w", err))
		}
	}
	workDir, err := os.MkdirTemp(t.tempDir, TempPrefix+"*")
	if err != nil {
		return fail(fmt.Errorf("creating scratch dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			t.logger.WithError(err).WithField("dir", workDir).Warn("failed to remove transcode scratch dir")
		}
	}()

	ext := asset.Ext
	if ext == "" {
		ext = "bin"
	}
	inputPath := filepath.Join(workDir, "input."+ext)
	outputPath := filepath.Join(workDir, "output."+OutputExt)

	if err := os.WriteFile(inputPath, asset.Data, 0o600); err != nil {
		return fail(fmt.Errorf("writing input: %w", err))
	}

	metadata, err := t.codec.GetMetadata(ctx, inputPath)
	if err != nil {
		return fail(err)
	}

	opts := ffmpeg.DefaultEncodeOptions()
	opts.BitRateKbps = plan.BitRateKbps
	opts.SampleRate = plan.SampleRate

	log := t.logger.WithFields(logrus.Fields{
		"asset":       asset.Name,
		"tier":        plan.Tier.String(),
		"raw_bytes":   asset.Size(),
		"duration_s":  metadata.Duration,
		"bitrate_k":   opts.BitRateKbps,
		"sample_rate": opts.SampleRate,
	})
	log.Debug("transcoding asset")

	if err := t.codec.Transcode(ctx, inputPath, outputPath, opts); err != nil {
		return fail(err)
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return fail(fmt.Errorf("reading output: %w", err))
	}

	log.WithField("encoded_bytes", len(out)).Info("transcoded asset")

	return Asset{
		Name: asset.Name,
		Ext:  OutputExt,
		Data: out,
	}, nil
}
