// Package ffmpeg wraps the ffmpeg CLI for audio extraction. It is one of the
// external collaborators the pipeline drives; the core only sequences calls
// and never inspects codec details.
package ffmpeg
