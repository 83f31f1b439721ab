package ffmpeg

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Bitrate    int     `json:"bitrate"`     // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (mp3, mov,mp4,m4a, etc.)
	Codec      string  `json:"codec"`       // Audio codec
	Size       int64   `json:"size"`        // File size in bytes
}

// EncodeOptions describes the target of a re-encode
type EncodeOptions struct {
	Codec       string // ffmpeg audio encoder, e.g. libmp3lame
	Format      string // output container passed to -f
	BitRateKbps int    // target audio bit rate
	SampleRate  int    // 0 keeps the source rate
	Channels    int    // 0 keeps the source layout
}

// DefaultEncodeOptions returns mono MP3 at 64 kbps
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Codec:       "libmp3lame",
		Format:      "mp3",
		BitRateKbps: 64,
		Channels:    1,
	}
}

// Args builds the ffmpeg argument list for encoding input into output
func (o EncodeOptions) Args(input, output string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", input,
		"-vn", // drop any video/cover art stream
		"-map_metadata", "-1",
	}
	if o.Codec != "" {
		args = append(args, "-c:a", o.Codec)
	}
	if o.BitRateKbps > 0 {
		args = append(args, "-b:a", itoa(o.BitRateKbps)+"k")
	}
	if o.SampleRate > 0 {
		args = append(args, "-ar", itoa(o.SampleRate))
	}
	if o.Channels > 0 {
		args = append(args, "-ac", itoa(o.Channels))
	}
	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	return append(args, "-y", output)
}
