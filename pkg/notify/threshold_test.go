package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

// evaluatedAt builds a not-yet-expired cluster whose lifetime window is 100
// hours, with the given share of it already consumed.
func evaluatedAt(elapsedHours float64) types.Evaluated {
	created := testNow.Add(-time.Duration(elapsedHours * float64(time.Hour)))
	return types.Evaluated{
		Record: types.ClusterRecord{
			Name:              "dev-1",
			Namespace:         "default",
			Labels:            map[string]string{"expires": "100h"},
			CreationTimestamp: created.Format(time.RFC3339),
			Ref:               &types.ClusterRef{Name: "dev-1", Namespace: "default"},
			Resolvable:        true,
		},
		Decision: types.Decision{
			Outcome: types.OutcomeProtect,
			Reason:  types.Reason{Kind: types.ReasonNotYetExpired},
		},
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name     string
		warning  int
		critical int
		wantErr  bool
	}{
		{name: "defaults", warning: 80, critical: 95},
		{name: "extremes", warning: 0, critical: 100},
		{name: "equal", warning: 80, critical: 80, wantErr: true},
		{name: "inverted", warning: 90, critical: 50, wantErr: true},
		{name: "negative-warning", warning: -1, critical: 95, wantErr: true},
		{name: "critical-above-100", warning: 80, critical: 101, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThresholds(tt.warning, tt.critical)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidThresholds) {
					t.Fatalf("expected ErrInvalidThresholds, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClassifyBuckets(t *testing.T) {
	tests := []struct {
		name         string
		elapsedHours float64
		want         types.Severity
	}{
		{name: "just-below-warning", elapsedHours: 79.9, want: types.SeverityNone},
		{name: "warning-boundary-inclusive", elapsedHours: 80, want: types.SeverityWarning},
		{name: "between-thresholds", elapsedHours: 90, want: types.SeverityWarning},
		{name: "critical-boundary-inclusive", elapsedHours: 95, want: types.SeverityCritical},
		{name: "nearly-expired", elapsedHours: 99.5, want: types.SeverityCritical},
		{name: "fresh", elapsedHours: 1, want: types.SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, err := Classify(evaluatedAt(tt.elapsedHours), 80, 95, testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cand.Severity != tt.want {
				t.Errorf("expected severity %s at %.1f%% elapsed, got %s (%.2f%%)",
					tt.want, tt.elapsedHours, cand.Severity, cand.ElapsedPct)
			}
		})
	}
}

func TestClassifyDeleteAlwaysCritical(t *testing.T) {
	// Any delete decision is critical at 100%, even when the reason has
	// nothing to do with time.
	ev := types.Evaluated{
		Record: types.ClusterRecord{
			Name:      "dev-2",
			Namespace: "default",
			Ref:       &types.ClusterRef{Name: "dev-2", Namespace: "default"},
		},
		Decision: types.Decision{
			Outcome: types.OutcomeDelete,
			Reason:  types.Reason{Kind: types.ReasonMissingExpires},
		},
	}

	cand, err := Classify(ev, 80, 95, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand.Severity != types.SeverityCritical {
		t.Errorf("expected critical severity, got %s", cand.Severity)
	}
	if cand.ElapsedPct != 100.0 {
		t.Errorf("expected 100%% elapsed, got %.2f", cand.ElapsedPct)
	}
}

func TestClassifySilentProtections(t *testing.T) {
	for _, kind := range []types.ReasonKind{
		types.ReasonManagementCluster,
		types.ReasonPolicyProtected,
		types.ReasonGracePeriod,
		types.ReasonNoClusterRef,
		types.ReasonClusterNotFound,
	} {
		ev := types.Evaluated{
			Record:   types.ClusterRecord{Name: "quiet"},
			Decision: types.Decision{Outcome: types.OutcomeProtect, Reason: types.Reason{Kind: kind}},
		}
		cand, err := Classify(ev, 80, 95, testNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cand.Severity != types.SeverityNone {
			t.Errorf("reason kind %v: expected no severity, got %s", kind, cand.Severity)
		}
	}
}

func TestClassifyInvalidThresholds(t *testing.T) {
	_, err := Classify(evaluatedAt(50), 95, 80, testNow)
	if !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
}

func TestElapsedPercent(t *testing.T) {
	created := testNow.Add(-50 * time.Hour)
	expiry := testNow.Add(50 * time.Hour)

	if pct := elapsedPercent(created, expiry, testNow); pct != 50.0 {
		t.Errorf("expected 50%%, got %.2f", pct)
	}

	// Zero-duration window counts as fully consumed.
	if pct := elapsedPercent(created, created, testNow); pct != 100.0 {
		t.Errorf("expected 100%% for zero-duration window, got %.2f", pct)
	}

	// Clamping on both sides.
	if pct := elapsedPercent(testNow.Add(time.Hour), testNow.Add(2*time.Hour), testNow); pct != 0.0 {
		t.Errorf("expected 0%% before creation, got %.2f", pct)
	}
	if pct := elapsedPercent(created, testNow.Add(-time.Hour), testNow); pct != 100.0 {
		t.Errorf("expected 100%% past expiry, got %.2f", pct)
	}
}

func TestBuildCandidates(t *testing.T) {
	deleteSet := []types.Evaluated{
		{
			Record: types.ClusterRecord{Name: "gone", Ref: &types.ClusterRef{Name: "gone", Namespace: "ns"}},
			Decision: types.Decision{
				Outcome: types.OutcomeDelete,
				Reason:  types.Reason{Kind: types.ReasonMissingExpires},
			},
		},
	}
	protectSet := []types.Evaluated{
		evaluatedAt(90),  // warning
		evaluatedAt(97),  // critical
		evaluatedAt(10),  // none
	}

	critical, warning, err := BuildCandidates(deleteSet, protectSet, 80, 95, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(critical) != 2 {
		t.Errorf("expected 2 critical candidates, got %d", len(critical))
	}
	if len(warning) != 1 {
		t.Errorf("expected 1 warning candidate, got %d", len(warning))
	}
}

func TestData(t *testing.T) {
	cand, err := Classify(evaluatedAt(50), 80, 95, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := Data(cand, testNow)
	if d.ClusterName != "dev-1" || d.Namespace != "default" {
		t.Errorf("unexpected identity: %s/%s", d.Namespace, d.ClusterName)
	}
	if d.Owner != "N/A" {
		t.Errorf("expected N/A owner, got %s", d.Owner)
	}
	if d.TimeRemaining != "2d" {
		t.Errorf("expected 2d remaining, got %s", d.TimeRemaining)
	}

	// Past expiry the remaining column reads EXPIRED.
	cand.Expiry = testNow.Add(-time.Minute)
	if d := Data(cand, testNow); d.TimeRemaining != "EXPIRED" {
		t.Errorf("expected EXPIRED, got %s", d.TimeRemaining)
	}
}
