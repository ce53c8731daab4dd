package transcoder

import "errors"

// muxers maps target tokens whose ffmpeg muxer name differs from the token.
var muxers = map[string]string{
	"mkv": "matroska",
	"m4a": "ipod",
	"aac": "adts",
	"ts":  "mpegts",
	"oga": "ogg",
	"mpg": "mpeg",
	"tif": "tiff",
}

// MuxerFor returns the ffmpeg output format name for a target token.
func MuxerFor(target string) string {
	if m, ok := muxers[target]; ok {
		return m
	}
	return target
}

// Pipeline describes an audio/video transcoding job declaratively: an input,
// an output container and a destination. Codecs are left to ffmpeg's
// defaults for the chosen container.
//
//	args, err := NewPipeline(in).Format("mp3").Save(out).Args()
type Pipeline struct {
	input  string
	format string
	output string
}

// NewPipeline starts a pipeline reading from input.
func NewPipeline(input string) *Pipeline {
	return &Pipeline{input: input}
}

// Format selects the output container from a target token.
func (p *Pipeline) Format(target string) *Pipeline {
	p.format = MuxerFor(target)
	return p
}

// Save sets the destination path.
func (p *Pipeline) Save(output string) *Pipeline {
	p.output = output
	return p
}

// Args renders the pipeline into ffmpeg arguments.
func (p *Pipeline) Args() ([]string, error) {
	if p.input == "" {
		return nil, errors.New("pipeline: input required")
	}
	if p.output == "" {
		return nil, errors.New("pipeline: output required")
	}

	args := []string{"-i", p.input, "-y"}
	if p.format != "" {
		args = append(args, "-f", p.format)
	}
	return append(args, p.output), nil
}
