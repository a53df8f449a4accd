package history

import (
	"context"
	"fmt"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// Key identifies a cluster in the notification history: the CAPI cluster
// namespace and name, so a cluster reusing the same identity later starts
// clean once its history is cleared.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Namespace, k.Name)
}

// Store persists which (cluster, severity) pairs have already been
// alerted. MarkNotified is idempotent set-add, so concurrent runs racing
// against the same store converge; at worst a cluster is alerted twice in
// one window.
type Store interface {
	// HasBeenNotified reports whether the cluster was already alerted at
	// this severity.
	HasBeenNotified(ctx context.Context, namespace, name string, severity types.Severity) (bool, error)

	// MarkNotified adds the severity to the cluster's notified set and
	// (re)arms the record's TTL.
	MarkNotified(ctx context.Context, namespace, name string, severity types.Severity, ttl time.Duration) error

	// ClearHistory removes all severities for the cluster.
	ClearHistory(ctx context.Context, namespace, name string) error

	// AllNotified lists every cluster with stored history, used by stale
	// reconciliation.
	AllNotified(ctx context.Context) ([]Key, error)

	Close() error
}

// FilterNew is the de-duplication gate: it returns only the candidates not
// already notified at the given severity.
func FilterNew(ctx context.Context, store Store, candidates []types.Candidate, severity types.Severity) ([]types.Candidate, error) {
	var fresh []types.Candidate
	for _, c := range candidates {
		notified, err := store.HasBeenNotified(ctx, c.Record.TargetNamespace(), c.Record.TargetName(), severity)
		if err != nil {
			return nil, fmt.Errorf("failed to check notification history for %s/%s: %w",
				c.Record.TargetNamespace(), c.Record.TargetName(), err)
		}
		if !notified {
			fresh = append(fresh, c)
		}
	}
	return fresh, nil
}

// MarkAll marks every candidate as notified at the given severity.
func MarkAll(ctx context.Context, store Store, candidates []types.Candidate, severity types.Severity, ttl time.Duration) error {
	for _, c := range candidates {
		if err := store.MarkNotified(ctx, c.Record.TargetNamespace(), c.Record.TargetName(), severity, ttl); err != nil {
			return fmt.Errorf("failed to mark %s/%s as notified: %w",
				c.Record.TargetNamespace(), c.Record.TargetName(), err)
		}
	}
	return nil
}
