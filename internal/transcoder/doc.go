// Package transcoder runs ffprobe and ffmpeg on behalf of the HTTP layer.
//
// Describe probes a file's duration. OpenStream starts one ffmpeg process per
// request, writing a live WebM or Matroska stream to a pipe that the caller
// reads through the returned Stream. The process is started directly, never
// through a shell, with stdin unconnected. Closing the Stream, or cancelling
// the request context it was opened with, terminates the encoder: SIGTERM
// first and SIGKILL once the kill grace period runs out.
//
// Video filters are assembled with the Filter and Chain types, which escape
// paths and option values for ffmpeg's filtergraph syntax. HD output is
// scaled and padded to 1920x1080. A sidecar .srt subtitle file next to the
// source is always burned in; embedded subtitle tracks are only probed for
// when a request forces subtitles.
//
// Outputs are live and unseekable. The HTTP layer rejects byte ranges
// other than "bytes=0-" before a stream is opened.
package transcoder
