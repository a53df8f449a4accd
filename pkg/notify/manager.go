package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/history"
	"github.com/clustersweep-io/clustersweep/pkg/integrations"
	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// Runner drives one notify invocation: stale-history reconciliation,
// de-duplication against the history store, delivery, and marking.
type Runner struct {
	store    history.Store // nil means de-duplication is disabled
	notifier integrations.Notifier
	ttl      time.Duration
}

// NewRunner creates a notify runner. A nil store disables de-duplication
// (the fail-open path); a nil notifier makes the run report-only.
func NewRunner(store history.Store, notifier integrations.Notifier, ttl time.Duration) *Runner {
	return &Runner{store: store, notifier: notifier, ttl: ttl}
}

// ReconcileStale clears history for every cluster that no longer requires
// any notification. A cluster alerted while its labels were broken, then
// fixed and now far from expiry, must not keep a stale "already warned"
// flag that would swallow a legitimate future warning. Returns the number
// of cleared records.
func (r *Runner) ReconcileStale(ctx context.Context, critical, warning []types.Candidate) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	needed := make(map[history.Key]bool)
	for _, c := range append(append([]types.Candidate{}, critical...), warning...) {
		needed[history.Key{Namespace: c.Record.TargetNamespace(), Name: c.Record.TargetName()}] = true
	}

	stored, err := r.store.AllNotified(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list notification history: %w", err)
	}

	cleared := 0
	for _, key := range stored {
		if needed[key] {
			continue
		}
		if err := r.store.ClearHistory(ctx, key.Namespace, key.Name); err != nil {
			return cleared, fmt.Errorf("failed to clear stale history for %s: %w", key, err)
		}
		slog.Info("cleared stale notification history", "namespace", key.Namespace, "cluster", key.Name)
		cleared++
	}

	return cleared, nil
}

// FilterNew drops candidates already notified at the given severity.
// Without a store every candidate is new.
func (r *Runner) FilterNew(ctx context.Context, candidates []types.Candidate, severity types.Severity) ([]types.Candidate, error) {
	if r.store == nil {
		return candidates, nil
	}
	return history.FilterNew(ctx, r.store, candidates, severity)
}

// Send delivers one severity batch and marks each cluster as notified.
func (r *Runner) Send(ctx context.Context, candidates []types.Candidate, severity types.Severity, thresholdPct int, now time.Time) error {
	if len(candidates) == 0 || r.notifier == nil {
		return nil
	}

	title, body := FormatExpiryAlert(candidates, severity, thresholdPct, now)
	if err := r.notifier.SendAlert(title, body, severity); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", severity, err)
	}
	integrations.NotificationsTotal.WithLabelValues(string(severity)).Add(float64(len(candidates)))

	if r.store == nil {
		return nil
	}
	return history.MarkAll(ctx, r.store, candidates, severity, r.ttl)
}

// FormatExpiryAlert renders a severity batch into a notification title and
// body.
func FormatExpiryAlert(candidates []types.Candidate, severity types.Severity, thresholdPct int, now time.Time) (title, body string) {
	switch severity {
	case types.SeverityCritical:
		title = fmt.Sprintf("🚨 CRITICAL: %d clusters at ≥%d%% of their lifetime", len(candidates), thresholdPct)
	default:
		title = fmt.Sprintf("⚠️ WARNING: %d clusters at ≥%d%% of their lifetime", len(candidates), thresholdPct)
	}

	var b strings.Builder
	for _, c := range candidates {
		d := Data(c, now)
		fmt.Fprintf(&b, "• %s/%s - owner %s, expires %s, %.1f%% elapsed, %s remaining\n",
			d.Namespace, d.ClusterName, d.Owner, d.Expires, d.ElapsedPct, d.TimeRemaining)
	}
	return title, b.String()
}

// FormatDeletionSummary renders the post-deletion notification body.
func FormatDeletionSummary(deleted []types.Evaluated) (title, body string) {
	title = fmt.Sprintf("🧹 Deleted %d expired clusters", len(deleted))

	var b strings.Builder
	for _, ev := range deleted {
		fmt.Fprintf(&b, "• %s/%s - owner %s (%s)\n",
			ev.Record.TargetNamespace(), ev.Record.TargetName(), ev.Record.Owner(), ev.Decision.Reason)
	}
	return title, b.String()
}
