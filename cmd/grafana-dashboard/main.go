package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

func main() {
	dashboardJSON, err := buildDashboard()
	if err != nil {
		panic(err)
	}

	outputPath := os.Getenv("DASHBOARD_OUT")
	if outputPath == "" {
		outputPath = "dashboard.json"
	}

	payload, err := json.MarshalIndent(dashboardJSON, "", "  ")
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		panic(err)
	}

	fmt.Printf("dashboard written to %s\n", outputPath)
}

func buildDashboard() (dashboard.Dashboard, error) {
	builder := dashboard.NewDashboardBuilder("Portfolio API").
		Uid("portfolio-api").
		Tags([]string{"portfolio", "contact", "prometheus"}).
		Refresh("1m").
		Time("now-6h", "now").
		Timezone(common.TimeZoneBrowser)

	builder = builder.WithRow(dashboard.NewRowBuilder("Contact form"))
	builder = builder.WithPanel(
		panel("Submissions by outcome",
			query(`sum by (outcome) (rate(portfolio_contact_submissions_total[5m]))`, "{{outcome}}")),
	)
	builder = builder.WithPanel(
		panel("Email send duration",
			query(`sum(rate(portfolio_contact_email_send_duration_seconds_sum[5m])) / sum(rate(portfolio_contact_email_send_duration_seconds_count[5m]))`, "avg"),
			query(`histogram_quantile(0.95, sum by (le) (rate(portfolio_contact_email_send_duration_seconds_bucket[5m])))`, "p95")),
	)
	builder = builder.WithPanel(
		panel("Store errors",
			query(`sum(rate(portfolio_contact_ratelimit_store_errors_total[5m]))`, "rate limit store"),
			query(`sum(rate(portfolio_contact_archive_errors_total[5m]))`, "archive")),
	)

	builder = builder.WithRow(dashboard.NewRowBuilder("Chat"))
	builder = builder.WithPanel(
		panel("Chat requests by outcome",
			query(`sum by (outcome) (rate(portfolio_chat_requests_total[5m]))`, "{{outcome}}"),
			query(`sum by (outcome) (rate(portfolio_chat_model_list_requests_total[5m]))`, "models {{outcome}}")),
	)
	builder = builder.WithPanel(
		panel("Generation duration",
			query(`histogram_quantile(0.5, sum by (le) (rate(portfolio_chat_generate_duration_seconds_bucket[5m])))`, "p50"),
			query(`histogram_quantile(0.95, sum by (le) (rate(portfolio_chat_generate_duration_seconds_bucket[5m])))`, "p95")),
	)

	builder = builder.WithRow(dashboard.NewRowBuilder("Owner alerts"))
	builder = builder.WithPanel(
		panel("Alerts by notifier",
			query(`sum by (notifier, outcome) (rate(portfolio_alerts_total[5m]))`, "{{notifier}} {{outcome}}")),
	)
	builder = builder.WithPanel(
		panel("Alerts dropped",
			query(`sum(rate(portfolio_alerts_dropped_total[5m]))`, "dropped")),
	)

	return builder.Build()
}

func panel(title string, targets ...*prometheus.DataqueryBuilder) *timeseries.PanelBuilder {
	builder := timeseries.NewPanelBuilder().Title(title)
	for _, target := range targets {
		builder = builder.WithTarget(target)
	}
	return builder
}

func query(expr, legend string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().Expr(expr).LegendFormat(legend)
}
