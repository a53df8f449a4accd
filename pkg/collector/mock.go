package collector

import (
	"context"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
)

// MockCollector provides a synthetic inventory for testing
type MockCollector struct{}

func NewMockCollector() *MockCollector {
	return &MockCollector{}
}

func (m *MockCollector) CollectAll(ctx context.Context) ([]types.ClusterRecord, error) {
	now := time.Now().UTC()
	return []types.ClusterRecord{
		{
			Name:      "dev-sandbox",
			Namespace: "default",
			Labels: map[string]string{
				"expires": "2d",
				"owner":   "platform-team",
			},
			CreationTimestamp: now.Add(-36 * time.Hour).Format(time.RFC3339),
			Ref:               &types.ClusterRef{Name: "dev-sandbox", Namespace: "default"},
			Resolvable:        true,
		},
		{
			Name:      "ci-runner",
			Namespace: "ci",
			Labels: map[string]string{
				"expires": "1w",
				"owner":   "ci-team",
			},
			CreationTimestamp: now.Add(-2 * time.Hour).Format(time.RFC3339),
			Ref:               &types.ClusterRef{Name: "ci-runner", Namespace: "ci"},
			Resolvable:        true,
		},
		{
			Name:              "legacy-test",
			Namespace:         "default",
			Labels:            map[string]string{"owner": "unknown-team"},
			CreationTimestamp: now.Add(-90 * 24 * time.Hour).Format(time.RFC3339),
			Ref:               &types.ClusterRef{Name: "legacy-test", Namespace: "default"},
			Resolvable:        true,
		},
	}, nil
}

func (m *MockCollector) CollectByNamespace(ctx context.Context, ns string) ([]types.ClusterRecord, error) {
	all, _ := m.CollectAll(ctx)
	var filtered []types.ClusterRecord
	for _, rec := range all {
		if rec.Namespace == ns {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}
