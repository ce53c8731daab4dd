// Package mediatypes classifies uploads and validates target formats.
//
// It is a dependency-free leaf that the converter and handler packages share.
//
//	mediatypes.Classify("image/jpeg")      // StrategyImage
//	mediatypes.Classify("video/mp4")       // StrategyAudioVideo
//	mediatypes.Classify("application/pdf") // StrategyUnsupported
//
// Target tokens arrive from a form field. NormalizeTarget trims and lowercases
// them and ValidTarget restricts them to short alphanumeric tokens, since the
// token becomes both the output file extension and an ffmpeg format name.
package mediatypes
