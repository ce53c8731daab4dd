package transcoder

import (
	"strconv"
	"strings"

	"conversion-gateway/internal/mediatypes"
)

// Invocation is a fully resolved external tool call. Args are handed to the
// process as a discrete argv and never pass through a shell.
type Invocation struct {
	Executable string
	Args       []string
}

// String renders the invocation for logs with every argument quoted.
func (i Invocation) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(i.Executable))
	for _, arg := range i.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(arg))
	}
	return b.String()
}

// BuildImageArgs returns the ffmpeg arguments for a still-image conversion.
//
// JPEG targets force the image2 muxer with the mjpeg encoder, since the
// encoder picked from a .jpg extension is unreliable for single frames. Every
// other target lets ffmpeg infer codec and container from the output path.
func BuildImageArgs(input, output, target string) []string {
	if mediatypes.IsJPEG(target) {
		return []string{"-y", "-i", input, "-f", "image2", "-vcodec", "mjpeg", output}
	}
	return []string{"-y", "-i", input, output}
}
