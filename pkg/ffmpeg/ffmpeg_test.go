package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if ffmpeg.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected ffmpegPath to be 'ffmpeg', got %s", ffmpeg.ffmpegPath)
	}
	if ffmpeg.ffprobePath != "ffprobe" {
		t.Errorf("Expected ffprobePath to be 'ffprobe', got %s", ffmpeg.ffprobePath)
	}
	if ffmpeg.timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", ffmpeg.timeout)
	}
}

func TestEncodeOptionsArgs(t *testing.T) {
	tests := []struct {
		name     string
		opts     EncodeOptions
		contains []string
		absent   []string
	}{
		{
			name:     "defaults keep sample rate",
			opts:     DefaultEncodeOptions(),
			contains: []string{"-c:a libmp3lame", "-b:a 64k", "-ac 1", "-f mp3"},
			absent:   []string{"-ar"},
		},
		{
			name: "resample when sample rate set",
			opts: EncodeOptions{
				Codec:       "libmp3lame",
				Format:      "mp3",
				BitRateKbps: 32,
				SampleRate:  16000,
				Channels:    1,
			},
			contains: []string{"-b:a 32k", "-ar 16000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.opts.Args("in.m4a", "out.mp3")
			joined := strings.Join(args, " ")

			if args[len(args)-1] != "out.mp3" {
				t.Errorf("Expected output path last, got %q", args[len(args)-1])
			}
			if !strings.Contains(joined, "-i in.m4a") {
				t.Errorf("Expected input flag in %q", joined)
			}
			for _, want := range tt.contains {
				if !strings.Contains(joined, want) {
					t.Errorf("Expected %q in %q", want, joined)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(joined, unwanted) {
					t.Errorf("Did not expect %q in %q", unwanted, joined)
				}
			}
		})
	}
}

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2}],
		"format": {"duration": "12.5", "size": "204800", "bit_rate": "131072", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
	}`)

	metadata, err := parseMetadata(raw, "clip.m4a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if metadata.Duration != 12.5 {
		t.Errorf("Expected duration 12.5, got %f", metadata.Duration)
	}
	if metadata.SampleRate != 44100 || metadata.Channels != 2 || metadata.Codec != "aac" {
		t.Errorf("Unexpected stream metadata: %+v", metadata)
	}
	if metadata.Size != 204800 {
		t.Errorf("Expected size 204800, got %d", metadata.Size)
	}
}

func TestParseMetadataWithoutAudioStream(t *testing.T) {
	raw := []byte(`{"streams": [], "format": {"duration": "3.0", "format_name": "png_pipe"}}`)

	_, err := parseMetadata(raw, "cover.png")
	if !errors.Is(err, ErrInvalidAudioFile) {
		t.Errorf("Expected ErrInvalidAudioFile, got %v", err)
	}

	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Errorf("Expected ProcessingError, got %T", err)
	}
}

func TestProcessingErrorKeepsStderrTail(t *testing.T) {
	stderr := "line1\nline2\nline3\nline4\nline5\nline6\nline7\n"
	err := NewProcessingError("transcode", "x.wav", errors.New("exit status 1"), stderr)
	if strings.Contains(err.Stderr, "line1") {
		t.Errorf("Expected leading stderr lines to be trimmed, got %q", err.Stderr)
	}
	if !strings.Contains(err.Stderr, "line7") {
		t.Errorf("Expected last stderr line to be kept, got %q", err.Stderr)
	}
}

// Integration test - only runs if ffmpeg/ffprobe are available
func TestValidateBinaries(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)

	err := ffmpeg.ValidateBinaries()
	if err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}
}

// generateTone writes a short sine wave using ffmpeg's lavfi source
func generateTone(t *testing.T, dir string, seconds string) string {
	t.Helper()
	path := filepath.Join(dir, "tone.wav")
	cmd := exec.Command("ffmpeg", "-hide_banner", "-f", "lavfi", "-i", "sine=frequency=440:duration="+seconds,
		"-ar", "44100", "-ac", "2", "-y", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not synthesise test audio: %v (%s)", err, out)
	}
	return path
}

func TestTranscodeWithRealAudio(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if err := ffmpeg.ValidateBinaries(); err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}

	dir := t.TempDir()
	input := generateTone(t, dir, "5")
	output := filepath.Join(dir, "out.mp3")

	opts := EncodeOptions{Codec: "libmp3lame", Format: "mp3", BitRateKbps: 32, SampleRate: 16000, Channels: 1}
	if err := ffmpeg.Transcode(context.Background(), input, output, opts); err != nil {
		t.Fatalf("Failed to transcode: %v", err)
	}

	inInfo, _ := os.Stat(input)
	outInfo, err := os.Stat(output)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if outInfo.Size() >= inInfo.Size() {
		t.Errorf("Expected output (%d bytes) to be smaller than PCM input (%d bytes)", outInfo.Size(), inInfo.Size())
	}

	metadata, err := ffmpeg.GetMetadata(context.Background(), output)
	if err != nil {
		t.Fatalf("Failed to get metadata: %v", err)
	}
	if metadata.SampleRate != 16000 {
		t.Errorf("Expected 16000 Hz output, got %d", metadata.SampleRate)
	}
	if metadata.Channels != 1 {
		t.Errorf("Expected mono output, got %d channels", metadata.Channels)
	}
	if metadata.Duration < 4 || metadata.Duration > 6 {
		t.Errorf("Expected duration around 5 seconds, got %f", metadata.Duration)
	}
}

func TestTranscodeRejectsGarbage(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if err := ffmpeg.ValidateBinaries(); err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "garbage.m4a")
	if err := os.WriteFile(input, []byte("definitely not audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := ffmpeg.Transcode(context.Background(), input, filepath.Join(dir, "out.mp3"), DefaultEncodeOptions())
	if err == nil {
		t.Fatal("Expected error for undecodable input, got nil")
	}

	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Errorf("Expected ProcessingError, got %T", err)
	}
}

func TestGetMetadataFileNotFound(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if err := ffmpeg.ValidateBinaries(); err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}

	_, err := ffmpeg.GetMetadata(context.Background(), "/nonexistent/file.mp3")
	if err == nil {
		t.Errorf("Expected error for non-existent file, got nil")
	}

	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Errorf("Expected ProcessingError, got %T", err)
	}
}
