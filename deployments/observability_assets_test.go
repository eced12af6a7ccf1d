package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// These tests keep the shipped dashboards and alert rules in step with the
// metric names the API exports.

func TestGrafanaDashboardShape(t *testing.T) {
	raw := readAsset(t, "observability", "grafana", "festql_overview_dashboard.json")

	var dashboard struct {
		Title  string `json:"title"`
		Panels []struct {
			Title   string `json:"title"`
			Targets []struct {
				Expr string `json:"expr"`
			} `json:"targets"`
		} `json:"panels"`
	}
	if err := json.Unmarshal([]byte(raw), &dashboard); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	if strings.TrimSpace(dashboard.Title) == "" {
		t.Fatal("dashboard title is required")
	}
	if len(dashboard.Panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
	for _, panel := range dashboard.Panels {
		for _, target := range panel.Targets {
			if target.Expr != "" && !strings.Contains(target.Expr, "festql") {
				t.Fatalf("panel %q queries a foreign series: %s", panel.Title, target.Expr)
			}
		}
	}
}

func TestPrometheusAssetsPinExpectedSeries(t *testing.T) {
	cases := []struct {
		name   string
		path   []string
		tokens []string
	}{
		{
			name: "alert rules",
			path: []string{"prometheus", "festql_rules.yaml"},
			tokens: []string{
				"alert: FestqlHTTPErrorRateHigh",
				"alert: FestqlQueryLatencyP95High",
				"alert: FestqlGenerationFallbackRateHigh",
				"alert: FestqlSyncFailuresDetected",
				"alert: FestqlArchiveExportFailed",
				"festql:slo_http_error_rate_5m",
				"festql:slo_query_latency_seconds_p95",
				"festql:slo_generation_fallback_ratio_15m",
				"festql:slo_sync_failures_30m",
				"festql:slo_archive_export_failures_24h",
			},
		},
		{
			name: "recording rules",
			path: []string{"prometheus", "festql_recording_rules.yaml"},
			tokens: []string{
				"record: festql:slo_http_error_rate_5m",
				"record: festql:slo_query_latency_seconds_p95",
				"record: festql:slo_generation_latency_seconds_p95",
				"record: festql:slo_generation_fallback_ratio_15m",
				"record: festql:slo_sync_failures_30m",
				"record: festql:slo_sync_duration_seconds_p95",
				"record: festql:slo_archive_export_failures_24h",
			},
		},
		{
			name: "scrape example",
			path: []string{"prometheus", "prometheus-scrape.example.yaml"},
			tokens: []string{
				"metrics_path: /metrics",
				"festql_rules.yaml",
				"festql_recording_rules.yaml",
				"job_name: festql-api",
			},
		},
		{
			name: "alertmanager example",
			path: []string{"alertmanager", "alertmanager.example.yaml"},
			tokens: []string{
				"receiver: festql-default",
				`severity="critical"`,
				`severity="warning"`,
				"name: festql-critical",
				"name: festql-warning",
				"inhibit_rules:",
				"group_by: [alertname, service, severity]",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := readAsset(t, append([]string{"observability"}, tc.path...)...)
			for _, token := range tc.tokens {
				if !strings.Contains(text, token) {
					t.Fatalf("%s missing %q", tc.name, token)
				}
			}
		})
	}
}

func readAsset(t *testing.T, parts ...string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	full := filepath.Join(append([]string{filepath.Dir(thisFile)}, parts...)...)
	content, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Join(parts...), err)
	}
	return string(content)
}
