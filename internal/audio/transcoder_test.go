package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/killallgit/audio-recap/pkg/ffmpeg"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCodec is a mock implementation of Codec
type MockCodec struct {
	mock.Mock
}

func (m *MockCodec) GetMetadata(ctx context.Context, path string) (*ffmpeg.AudioMetadata, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ffmpeg.AudioMetadata), args.Error(1)
}

func (m *MockCodec) Transcode(ctx context.Context, input, output string, opts ffmpeg.EncodeOptions) error {
	args := m.Called(ctx, input, output, opts)
	return args.Error(0)
}

// scaledOutput emulates an encoder of known compressibility: output size is
// input size times ratio.
func scaledOutput(ratio float64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		input := args.String(1)
		output := args.String(2)
		data, err := os.ReadFile(input)
		if err != nil {
			panic(err)
		}
		n := int(float64(len(data)) * ratio)
		if err := os.WriteFile(output, bytes.Repeat([]byte{0xFF}, n), 0o600); err != nil {
			panic(err)
		}
	}
}

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestTranscodeNoopForTierNone(t *testing.T) {
	codec := new(MockCodec)
	tr := NewTranscoder(codec, t.TempDir(), newTestLogger())

	asset := NewAsset("talk.mp3", []byte("original bytes"))
	out, err := tr.Transcode(context.Background(), asset, Plan(asset.Size(), 25*mib))

	require.NoError(t, err)
	assert.Equal(t, asset, out)
	codec.AssertNotCalled(t, "Transcode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTranscodeAppliesPlan(t *testing.T) {
	tempDir := t.TempDir()
	codec := new(MockCodec)
	tr := NewTranscoder(codec, tempDir, newTestLogger())

	asset := NewAsset("lecture.wav", bytes.Repeat([]byte{1}, 4096))
	plan := CompressionPlan{Tier: TierLowest, BitRateKbps: 32, SampleRate: 16000, Ratio: 0.2}

	codec.On("GetMetadata", mock.Anything, mock.MatchedBy(func(p string) bool {
		return filepath.Ext(p) == ".wav"
	})).Return(&ffmpeg.AudioMetadata{Duration: 60}, nil)
	codec.On("Transcode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(o ffmpeg.EncodeOptions) bool {
		return o.BitRateKbps == 32 && o.SampleRate == 16000 && o.Channels == 1 && o.Format == "mp3"
	})).Run(scaledOutput(0.25)).Return(nil)

	out, err := tr.Transcode(context.Background(), asset, plan)
	require.NoError(t, err)

	assert.Equal(t, "mp3", out.Ext)
	assert.Equal(t, "lecture.wav", out.Name)
	assert.Equal(t, int64(1024), out.Size())
	codec.AssertExpectations(t)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch storage must be released")
}

func TestTranscodeReleasesStorageOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *MockCodec)
	}{
		{
			name: "undecodable input",
			setup: func(c *MockCodec) {
				c.On("GetMetadata", mock.Anything, mock.Anything).
					Return(nil, ffmpeg.NewProcessingError("metadata_extraction", "input.m4a", ffmpeg.ErrInvalidAudioFile, ""))
			},
		},
		{
			name: "encoder failure",
			setup: func(c *MockCodec) {
				c.On("GetMetadata", mock.Anything, mock.Anything).Return(&ffmpeg.AudioMetadata{Duration: 1}, nil)
				c.On("Transcode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(errors.New("exit status 1"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			codec := new(MockCodec)
			tt.setup(codec)
			tr := NewTranscoder(codec, tempDir, newTestLogger())

			_, err := tr.Transcode(context.Background(), NewAsset("x.m4a", []byte("xx")), Plan(40*mib, 25*mib))
			require.Error(t, err)

			var transcodeErr *TranscodeError
			require.ErrorAs(t, err, &transcodeErr)
			assert.Equal(t, TierLow, transcodeErr.Tier)
			assert.Equal(t, "x.m4a", transcodeErr.Asset)

			entries, err := os.ReadDir(tempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

// constantBitRateOutput emulates a CBR encoder over a source recorded at
// sourceKbps: output size is input size times target/source bit rate.
func constantBitRateOutput(sourceKbps int) func(mock.Arguments) {
	return func(args mock.Arguments) {
		data, err := os.ReadFile(args.String(1))
		if err != nil {
			panic(err)
		}
		opts := args.Get(3).(ffmpeg.EncodeOptions)
		n := len(data) * opts.BitRateKbps / sourceKbps
		if err := os.WriteFile(args.String(2), bytes.Repeat([]byte{0xFF}, n), 0o600); err != nil {
			panic(err)
		}
	}
}

func TestTranscodeSyntheticAssetAgainstCeiling(t *testing.T) {
	// Sizes are scaled down 1024x so the test stays light; output size is
	// linear in input size, so fitting is unaffected.
	const scale = 1024
	ceiling := 25 * mib / scale

	tests := []struct {
		name       string
		sourceKbps int
		rawMiB     int64
		wantTier   Tier
		wantFits   bool
	}{
		{name: "30 MiB mp3", sourceKbps: 128, rawMiB: 30, wantTier: TierMedium, wantFits: true},
		{name: "40 MiB mp3", sourceKbps: 128, rawMiB: 40, wantTier: TierLow, wantFits: true},
		{name: "60 MiB mp3", sourceKbps: 128, rawMiB: 60, wantTier: TierLowest, wantFits: true},
		{name: "120 MiB mp3 stays too large", sourceKbps: 128, rawMiB: 120, wantTier: TierLowest, wantFits: false},
		{name: "120 MiB pcm wav", sourceKbps: 1411, rawMiB: 120, wantTier: TierLowest, wantFits: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.rawMiB * mib / scale
			plan := Plan(raw, ceiling)
			require.Equal(t, tt.wantTier, plan.Tier)

			codec := new(MockCodec)
			codec.On("GetMetadata", mock.Anything, mock.Anything).Return(&ffmpeg.AudioMetadata{Duration: 600}, nil)
			codec.On("Transcode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Run(constantBitRateOutput(tt.sourceKbps)).Return(nil)

			tr := NewTranscoder(codec, t.TempDir(), newTestLogger())
			out, err := tr.Transcode(context.Background(), NewAsset("a.mp3", make([]byte, raw)), plan)
			require.NoError(t, err)

			assert.Equal(t, raw*int64(plan.BitRateKbps)/int64(tt.sourceKbps), out.Size())
			if tt.wantFits {
				assert.LessOrEqual(t, out.Size(), ceiling)
			} else {
				assert.Greater(t, out.Size(), ceiling)
			}
		})
	}
}

func TestTranscodeWithFFmpeg(t *testing.T) {
	codec := ffmpeg.New("ffmpeg", "ffprobe", 0)
	if err := codec.ValidateBinaries(); err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "tone.wav")
	gen := []string{"-hide_banner", "-f", "lavfi", "-i", "sine=frequency=300:duration=3", "-ar", "44100", "-ac", "2", "-y", src}
	if err := runFFmpeg(gen...); err != nil {
		t.Skipf("could not synthesise audio: %v", err)
	}
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	asset := NewAsset("tone.wav", data)
	tr := NewTranscoder(codec, t.TempDir(), newTestLogger())
	out, err := tr.Transcode(context.Background(), asset, CompressionPlan{Tier: TierLowest, BitRateKbps: 32, SampleRate: 16000})
	require.NoError(t, err)
	assert.Less(t, out.Size(), asset.Size())
	assert.Equal(t, "mp3", out.Ext)
}
