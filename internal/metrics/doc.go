// Package metrics provides Prometheus instrumentation for media-share.
//
// All metrics are registered on the default registry through promauto and
// are prefixed with "media_share_". The HTTP metrics are fed by the
// middleware package, the database metrics by the database package, the
// link and path metrics by the access package and the transcoder metrics
// by the transcoder package.
//
// Library gauges (users, directories, links, sessions) are refreshed by a
// [Collector] polling a [StatsProvider]:
//
//	collector := metrics.NewCollector(db, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// Example queries:
//
//	sum(rate(media_share_http_requests_total[5m])) by (path)
//	media_share_transcoder_streams_active
//	rate(media_share_link_token_collisions_total[1d])
package metrics
