package notify

import (
	"errors"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/decision"
	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// ErrInvalidThresholds reports a threshold pair outside
// 0 <= warning < critical <= 100.
var ErrInvalidThresholds = errors.New("thresholds must satisfy 0 <= warning < critical <= 100")

// ValidateThresholds checks the warning/critical percentage pair.
func ValidateThresholds(warningPct, criticalPct int) error {
	if warningPct < 0 || warningPct > 100 || criticalPct < 0 || criticalPct > 100 || warningPct >= criticalPct {
		return ErrInvalidThresholds
	}
	return nil
}

// Classify buckets one evaluated cluster into a notification severity.
//
// Delete decisions are always critical at 100% elapsed: a cluster about to
// be removed this run must alert even when the deletion reason has nothing
// to do with time. Protect decisions only generate notifications when the
// cluster is simply not expired yet; management and policy protections stay
// silent. Boundaries are inclusive: elapsed >= critical is critical,
// elapsed >= warning is warning.
func Classify(ev types.Evaluated, warningPct, criticalPct int, now time.Time) (types.Candidate, error) {
	if err := ValidateThresholds(warningPct, criticalPct); err != nil {
		return types.Candidate{}, err
	}

	cand := types.Candidate{Record: ev.Record, Reason: ev.Decision.Reason, Severity: types.SeverityNone}

	if ev.Decision.Outcome == types.OutcomeDelete {
		cand.Severity = types.SeverityCritical
		cand.ElapsedPct = 100.0
		cand.Expiry = now
		// Best effort: show the real expiry instant when the labels allow.
		if expiry, err := decision.ComputeExpiry(ev.Record.Labels["expires"], ev.Record.CreationTimestamp); err == nil {
			cand.Expiry = expiry
		}
		return cand, nil
	}

	if ev.Decision.Reason.Kind != types.ReasonNotYetExpired {
		return cand, nil
	}

	expiry, err := decision.ComputeExpiry(ev.Record.Labels["expires"], ev.Record.CreationTimestamp)
	if err != nil {
		// Unreachable for records the engine marked NotYetExpired, but a
		// record constructed by hand may disagree; skip rather than guess.
		return cand, nil
	}
	created, err := time.Parse(time.RFC3339, ev.Record.CreationTimestamp)
	if err != nil {
		return cand, nil
	}

	cand.Expiry = expiry
	cand.ElapsedPct = elapsedPercent(created, expiry, now)

	switch {
	case cand.ElapsedPct >= float64(criticalPct):
		cand.Severity = types.SeverityCritical
	case cand.ElapsedPct >= float64(warningPct):
		cand.Severity = types.SeverityWarning
	}

	return cand, nil
}

// elapsedPercent computes the consumed share of the creation-to-expiry
// window, clamped to [0,100]. A zero-duration window counts as fully
// consumed.
func elapsedPercent(created, expiry, now time.Time) float64 {
	total := expiry.Sub(created)
	if total <= 0 {
		return 100.0
	}

	pct := 100.0 * float64(now.Sub(created)) / float64(total)
	if pct < 0 {
		return 0.0
	}
	if pct > 100 {
		return 100.0
	}
	return pct
}

// BuildCandidates classifies a partitioned inventory into critical and
// warning notification lists.
func BuildCandidates(deleteSet, protectSet []types.Evaluated, warningPct, criticalPct int, now time.Time) (critical, warning []types.Candidate, err error) {
	if err := ValidateThresholds(warningPct, criticalPct); err != nil {
		return nil, nil, err
	}

	for _, ev := range append(append([]types.Evaluated{}, deleteSet...), protectSet...) {
		cand, err := Classify(ev, warningPct, criticalPct, now)
		if err != nil {
			return nil, nil, err
		}
		switch cand.Severity {
		case types.SeverityCritical:
			critical = append(critical, cand)
		case types.SeverityWarning:
			warning = append(warning, cand)
		}
	}

	return critical, warning, nil
}

// Data flattens a candidate into the payload handed to notifiers and
// display tables.
func Data(c types.Candidate, now time.Time) types.NotificationData {
	remaining := "EXPIRED"
	if c.Expiry.After(now) {
		remaining = decision.FormatRemaining(c.Expiry.Sub(now))
	}

	return types.NotificationData{
		ClusterName:   c.Record.TargetName(),
		Namespace:     c.Record.TargetNamespace(),
		Owner:         c.Record.Owner(),
		Expires:       c.Record.ExpiresLabel(),
		ElapsedPct:    c.ElapsedPct,
		TimeRemaining: remaining,
		Reason:        c.Reason.String(),
	}
}
