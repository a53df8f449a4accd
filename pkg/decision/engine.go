package decision

import (
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/policy"
	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// managementClusterName is the object name of the management cluster. The
// display name may change between releases but the object name stays
// stable, so this guard keys on it. Never configurable.
const managementClusterName = "host-cluster"

// Engine evaluates cluster records against a loaded policy. It holds no
// client state: decisions are pure functions of (record, policy, now).
type Engine struct {
	policy *policy.Policy
	grace  time.Duration
}

// NewEngine creates a decision engine for the given policy.
func NewEngine(pol *policy.Policy) *Engine {
	if pol == nil {
		pol = policy.Default()
	}
	return &Engine{policy: pol}
}

// SetGrace protects clusters younger than d from deletion and
// notifications. Zero disables the grace period.
func (e *Engine) SetGrace(d time.Duration) {
	e.grace = d
}

// Decide runs the ordered precedence chain for a single record. The first
// matching rule terminates evaluation; the returned reason reflects exactly
// that rule.
func (e *Engine) Decide(rec types.ClusterRecord, now time.Time) types.Decision {
	// 1. Hard safety exclusion: the management cluster is never deletable.
	if rec.Name == managementClusterName {
		return protect(types.Reason{Kind: types.ReasonManagementCluster})
	}

	// 2. Configured protection by cluster name or namespace.
	if e.policy.IsProtected(rec.Name, rec.Namespace) {
		return protect(types.Reason{Kind: types.ReasonPolicyProtected})
	}

	// 3. Grace period for freshly created clusters, when configured.
	if e.grace > 0 {
		if created, err := time.Parse(time.RFC3339, rec.CreationTimestamp); err == nil {
			if now.Sub(created) < e.grace {
				return protect(types.Reason{Kind: types.ReasonGracePeriod})
			}
		}
	}

	// 4. The expires label is mandatory.
	expiresValue, ok := rec.Labels["expires"]
	if !ok {
		return del(types.Reason{Kind: types.ReasonMissingExpires})
	}

	// 5. Extra required labels, first failure wins.
	if reason := e.policy.ValidateLabels(rec.Labels); reason != nil {
		return del(*reason)
	}

	// 6. Time-based expiry. Malformed metadata is itself grounds for
	// cleanup, never for skipping the cluster.
	expiry, err := ComputeExpiry(expiresValue, rec.CreationTimestamp)
	if err != nil {
		return del(types.Reason{
			Kind:   types.ReasonInvalidExpiry,
			Value:  expiresValue,
			Detail: err.Error(),
		})
	}

	if !now.Before(expiry) {
		return del(types.Reason{
			Kind:    types.ReasonExpired,
			Created: creationDate(rec.CreationTimestamp),
			Value:   expiresValue,
		})
	}

	return protect(types.Reason{
		Kind:      types.ReasonNotYetExpired,
		Remaining: FormatRemaining(expiry.Sub(now)),
	})
}

// Partition evaluates every record and splits the inventory into the
// delete set and the protect set. Records decided for deletion whose CAPI
// reference is missing or unresolvable are moved to the protect set: a
// cluster we cannot positively identify is never deleted.
func (e *Engine) Partition(recs []types.ClusterRecord, now time.Time) (deleteSet, protectSet []types.Evaluated) {
	for _, rec := range recs {
		d := e.Decide(rec, now)

		if d.Outcome == types.OutcomeDelete {
			if rec.Ref == nil {
				d = protect(types.Reason{Kind: types.ReasonNoClusterRef})
			} else if !rec.Resolvable {
				d = protect(types.Reason{Kind: types.ReasonClusterNotFound})
			}
		}

		ev := types.Evaluated{Record: rec, Decision: d}
		if d.Outcome == types.OutcomeDelete {
			deleteSet = append(deleteSet, ev)
		} else {
			protectSet = append(protectSet, ev)
		}
	}
	return deleteSet, protectSet
}

func creationDate(timestamp string) string {
	if len(timestamp) >= 10 {
		return timestamp[:10]
	}
	return timestamp
}

func protect(r types.Reason) types.Decision {
	return types.Decision{Outcome: types.OutcomeProtect, Reason: r}
}

func del(r types.Reason) types.Decision {
	return types.Decision{Outcome: types.OutcomeDelete, Reason: r}
}
