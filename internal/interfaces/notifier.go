package interfaces

import "context"

// Notifier delivers terminal-state notifications to the external messaging
// collaborator. The orchestrator calls it exactly once per terminal state.
type Notifier interface {
	// NotifyReportReady announces a completed (possibly degraded) report.
	NotifyReportReady(ctx context.Context, client, month, url string, degraded bool, warnings []string) error

	// NotifyMissingData reports missing input items for a client month.
	NotifyMissingData(ctx context.Context, client, month string, missing []string) error

	// NotifyError reports a failed job with an actionable summary.
	NotifyError(ctx context.Context, client, month, summary string) error
}
