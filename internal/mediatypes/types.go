package mediatypes

import (
	"regexp"
	"strings"
)

// Strategy is the conversion path chosen for an uploaded file.
type Strategy string

const (
	// StrategyImage converts still images with a direct ffmpeg invocation.
	StrategyImage Strategy = "image"
	// StrategyAudioVideo converts audio and video through the pipeline builder.
	StrategyAudioVideo Strategy = "audio_video"
	// StrategyUnsupported rejects the upload.
	StrategyUnsupported Strategy = "unsupported"
)

// Classify maps a declared media type to a conversion strategy. The prefix
// match is case-sensitive; the upload layer supplies lowercase MIME types.
func Classify(mediaType string) Strategy {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return StrategyImage
	case strings.HasPrefix(mediaType, "audio/"), strings.HasPrefix(mediaType, "video/"):
		return StrategyAudioVideo
	default:
		return StrategyUnsupported
	}
}

// targetPattern limits target tokens to what can safely become a file
// extension and an ffmpeg format name.
var targetPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// NormalizeTarget trims and lowercases a raw target-format field.
func NormalizeTarget(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidTarget reports whether a normalized target token is acceptable.
func ValidTarget(target string) bool {
	return targetPattern.MatchString(target)
}

// IsJPEG reports whether target selects JPEG still output.
func IsJPEG(target string) bool {
	return target == "jpg" || target == "jpeg"
}

// ContentTypes maps target tokens to download content types.
var ContentTypes = map[string]string{
	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"ico":  "image/x-icon",
	"avif": "image/avif",

	// Audio
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",

	// Video
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"flv":  "video/x-flv",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"3gp":  "video/3gpp",
	"ts":   "video/mp2t",
}

// ContentTypeFor returns the content type for a target token, falling back to
// application/octet-stream.
func ContentTypeFor(target string) string {
	if ct, ok := ContentTypes[target]; ok {
		return ct
	}
	return "application/octet-stream"
}
