package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain series. HTTP-level metrics live in metrics.go; these count what the
// service actually does: sync runs, SQL generations, archive exports.
var (
	syncRunsTotal = counterVec(
		"festql_sync_runs_total",
		"Total number of source sync runs by result.",
		"status",
	)
	syncRecordsTotal = counter(
		"festql_sync_records_total",
		"Total number of source records fetched across sync runs.",
	)
	syncRowsWrittenTotal = counter(
		"festql_sync_rows_written_total",
		"Total number of event rows upserted across sync runs.",
	)
	syncDurationSeconds = histogram(
		"festql_sync_duration_seconds",
		"End-to-end sync run duration in seconds.",
		[]float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	)
	generationRequestsTotal = counterVec(
		"festql_nl2sql_requests_total",
		"Total number of SQL generation requests by flow and outcome.",
		"flow", "outcome",
	)
	generationDurationSeconds = histogram(
		"festql_nl2sql_duration_seconds",
		"SQL generation latency in seconds, model call included.",
		prometheus.DefBuckets,
	)
	archiveExportsTotal = counterVec(
		"festql_archive_exports_total",
		"Total number of archive export runs by result.",
		"status",
	)
	archiveEventsTotal = counter(
		"festql_archive_events_total",
		"Total number of events written to archive snapshots.",
	)
)

func init() {
	prometheus.MustRegister(
		syncRunsTotal,
		syncRecordsTotal,
		syncRowsWrittenTotal,
		syncDurationSeconds,
		generationRequestsTotal,
		generationDurationSeconds,
		archiveExportsTotal,
		archiveEventsTotal,
	)
}

// ObserveSyncRun records one sync run. Failed runs count only toward the
// error total, never toward the volume series.
func ObserveSyncRun(fetched, written int, elapsed time.Duration, err error) {
	if err != nil {
		syncRunsTotal.WithLabelValues("error").Inc()
		return
	}
	syncRunsTotal.WithLabelValues("ok").Inc()
	if fetched > 0 {
		syncRecordsTotal.Add(float64(fetched))
	}
	if written > 0 {
		syncRowsWrittenTotal.Add(float64(written))
	}
	syncDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveGeneration records one NL-to-SQL generation with its outcome label
// (generated, blocked, or failed).
func ObserveGeneration(flow, outcome string, elapsed time.Duration) {
	generationRequestsTotal.WithLabelValues(flow, outcome).Inc()
	generationDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveArchiveExport records one archive export run.
func ObserveArchiveExport(events int, err error) {
	if err != nil {
		archiveExportsTotal.WithLabelValues("error").Inc()
		return
	}
	archiveExportsTotal.WithLabelValues("ok").Inc()
	if events > 0 {
		archiveEventsTotal.Add(float64(events))
	}
}
