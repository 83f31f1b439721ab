// Package download fetches a remote recording into memory.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTooLarge is returned when the body exceeds Options.MaxSize.
var ErrTooLarge = errors.New("remote file exceeds the size limit")

// ErrNotAudio is returned when ValidateAudio is set and the response is
// clearly not audio.
var ErrNotAudio = errors.New("remote file is not audio")

// ErrInvalidURL is returned for anything but an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// Options configures the download behavior
type Options struct {
	MaxSize       int64         // Maximum body size in bytes (0 = no limit)
	Timeout       time.Duration // Whole-request timeout
	ProgressFunc  ProgressFunc  // Optional progress callback
	UserAgent     string        // User agent string
	ValidateAudio bool          // Reject non-audio content types
}

// ProgressFunc is called during download to report progress
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		MaxSize:       200 * 1024 * 1024,
		Timeout:       5 * time.Minute,
		UserAgent:     "AudioRecap/1.0",
		ValidateAudio: true,
	}
}

// Result is a fetched file held in memory.
type Result struct {
	Name        string // file name, with an extension when one could be derived
	ContentType string
	Data        []byte
}

// Fetcher is the behaviour callers depend on.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// Downloader fetches remote audio files
type Downloader struct {
	client  *http.Client
	options Options
	logger  logrus.FieldLogger
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options Options, logger logrus.FieldLogger) *Downloader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // audio is already compressed
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
		logger:  logger,
	}
}

// Fetch downloads rawURL into memory
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	log := d.logger.WithField("url", u.Redacted())
	log.Debug("Starting download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,video/*;q=0.8,*/*;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateAudio && !isAudioContentType(contentType) {
		return nil, fmt.Errorf("%w: content type %s", ErrNotAudio, contentType)
	}

	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, resp.ContentLength, d.options.MaxSize)
	}

	data, err := d.readBody(resp.Body, resp.ContentLength)
	if err != nil {
		return nil, err
	}

	name := fileName(u, resp.Header.Get("Content-Disposition"), contentType)
	log.WithFields(logrus.Fields{"bytes": len(data), "name": name}).Debug("Download complete")

	return &Result{Name: name, ContentType: contentType, Data: data}, nil
}

// readBody reads at most MaxSize bytes; one byte more means the server lied
// about (or omitted) the length.
func (d *Downloader) readBody(body io.Reader, total int64) ([]byte, error) {
	reader := body
	if d.options.ProgressFunc != nil {
		reader = &progressReader{
			reader:   body,
			total:    total,
			callback: d.options.ProgressFunc,
		}
	}

	if d.options.MaxSize > 0 {
		reader = io.LimitReader(reader, d.options.MaxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if d.options.MaxSize > 0 && int64(len(data)) > d.options.MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.options.MaxSize)
	}
	return data, nil
}

// fileName prefers Content-Disposition, then the URL path, then a generic
// name. A missing extension is derived from the content type.
func fileName(u *url.URL, disposition, contentType string) string {
	name := ""
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			name = path.Base(params["filename"])
		}
	}
	if name == "" || name == "." || name == "/" {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = "download"
	}

	if path.Ext(name) == "" {
		if ext := extensionFor(contentType); ext != "" {
			name += "." + ext
		}
	}
	return name
}

var contentTypeExtensions = map[string]string{
	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/mp4":    "m4a",
	"audio/x-m4a":  "m4a",
	"audio/m4a":    "m4a",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	"audio/flac":   "flac",
	"audio/x-flac": "flac",
	"audio/ogg":    "ogg",
	"audio/webm":   "webm",
	"video/mp4":    "mp4",
	"video/mpeg":   "mpeg",
	"video/webm":   "webm",
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return contentTypeExtensions[mediaType]
}

// isAudioContentType checks if content type is plausibly audio
func isAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "application/octet-stream") ||
		contentType == ""
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.callback(pr.downloaded, pr.total)
	}
	return n, err
}
