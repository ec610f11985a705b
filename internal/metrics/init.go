package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, result := range []string{"ok", "expired", "unknown"} {
		LinkResolutions.WithLabelValues(result)
	}

	for _, root := range []string{"shared", "private"} {
		PathResolutions.WithLabelValues(root)
	}

	for _, state := range []string{"active", "expired"} {
		LibraryLinks.WithLabelValues(state)
	}

	for _, profile := range []string{"webm", "matroska"} {
		for _, quality := range []string{"standard", "hd"} {
			for _, status := range []string{"started", "spawn_error", "completed", "aborted"} {
				TranscoderStreamsTotal.WithLabelValues(profile, quality, status)
			}
		}
		TranscoderStreamDuration.WithLabelValues(profile)
		TranscoderBytesStreamed.WithLabelValues(profile)
	}

	for _, kind := range []string{"duration", "subtitles"} {
		TranscoderProbeDuration.WithLabelValues(kind)
		TranscoderProbeErrors.WithLabelValues(kind)
	}

	for _, method := range []string{"session", "basic", "login"} {
		AuthAttemptsTotal.WithLabelValues(method, "success")
		AuthAttemptsTotal.WithLabelValues(method, "failure")
	}

	for _, scope := range []string{"public", "login"} {
		HTTPRateLimited.WithLabelValues(scope)
	}

	for _, op := range []string{"initialize_schema", "add_user", "delete_user", "validate_password",
		"add_directory", "delete_directory", "set_access", "resolve_directory", "shared_directories",
		"insert_link", "link_exists", "get_link", "create_session", "validate_session", "library_stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
