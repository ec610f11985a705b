/*
Package streaming delivers long-running response bodies, such as live
transcoder output, without letting slow or vanished clients pin server
resources.

# Timeouts

TimeoutWriter wraps an http.ResponseWriter and enforces three limits:

  - WriteTimeout bounds a single write.
  - IdleTimeout bounds the gap between successful writes.
  - MaxDuration bounds the whole stream (0 means unlimited).

Large writes are split into ChunkSize pieces and flushed one by one so that
cancellation is noticed between chunks. The reason a stream stopped is
reported as one of the sentinel errors:

	n, err := streaming.StreamWithTimeout(r.Context(), w, stream, config)
	switch {
	case errors.Is(err, streaming.ErrClientGone):
		// client left; not a server error
	case errors.Is(err, streaming.ErrWriteTimeout):
		logging.Warn("Slow client terminated after %d bytes", n)
	}

# Byte ranges

Transcoded output has no length known in advance, so only whole-body
requests are served. CheckRange accepts an absent Range header or
"bytes=0-" and returns ErrUnsatisfiableRange for anything else; RejectRange
writes the matching 416 response. Handlers call CheckRange before doing any
other work for the request.
*/
package streaming
