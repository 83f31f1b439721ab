// Package audio holds the upload-side audio pipeline: the immutable asset
// value, the compression planner, and the transcoder that applies a plan.
package audio

import (
	"path/filepath"
	"strings"
)

// Asset is an uploaded (or re-encoded) recording. It is treated as immutable;
// transcoding always produces a new Asset.
type Asset struct {
	Name string // original file name, for display only
	Ext  string // lower-case extension without the dot, selects the container
	Data []byte
}

// NewAsset builds an Asset, deriving the declared extension from name.
func NewAsset(name string, data []byte) Asset {
	return Asset{
		Name: name,
		Ext:  ExtensionOf(name),
		Data: data,
	}
}

// Size is the byte length of the asset.
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

// ExtensionOf returns the lower-case extension of name without the leading dot.
func ExtensionOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// SupportedExtensions are the containers the speech service and the codec
// both accept for uploads.
var SupportedExtensions = []string{"m4a", "mp3", "wav", "flac", "mp4", "mpeg", "mpga", "oga", "ogg", "webm"}

// IsSupported reports whether ext is an accepted upload container.
func IsSupported(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
