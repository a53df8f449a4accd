package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Collector produces the cluster inventory the decision engine evaluates
type Collector interface {
	CollectAll(ctx context.Context) ([]types.ClusterRecord, error)
	CollectByNamespace(ctx context.Context, namespace string) ([]types.ClusterRecord, error)
}

// ClusterCollector walks management cluster objects and resolves their CAPI
// references into ClusterRecords.
type ClusterCollector struct {
	client *KubernetesClient
}

// NewClusterCollector creates a collector backed by a live cluster.
func NewClusterCollector(client *KubernetesClient) *ClusterCollector {
	return &ClusterCollector{client: client}
}

// CollectAll gathers records from every namespace.
func (c *ClusterCollector) CollectAll(ctx context.Context) ([]types.ClusterRecord, error) {
	namespaces, err := c.client.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	var records []types.ClusterRecord
	for _, ns := range namespaces {
		nsRecords, err := c.collectNamespace(ctx, ns)
		if err != nil {
			// One unreadable namespace must not abort the sweep.
			slog.Warn("skipping namespace", "namespace", ns, "error", err)
			continue
		}
		records = append(records, nsRecords...)
	}
	return records, nil
}

// CollectByNamespace gathers records from a single namespace.
func (c *ClusterCollector) CollectByNamespace(ctx context.Context, namespace string) ([]types.ClusterRecord, error) {
	return c.collectNamespace(ctx, namespace)
}

func (c *ClusterCollector) collectNamespace(ctx context.Context, namespace string) ([]types.ClusterRecord, error) {
	items, err := c.client.ListManagementClusters(ctx, namespace)
	if err != nil {
		return nil, err
	}

	var records []types.ClusterRecord
	for _, item := range items {
		rec, ok := RecordFromUnstructured(item, namespace)
		if !ok {
			slog.Info("skipping attached cluster", "namespace", namespace, "name", item.GetName())
			continue
		}

		if rec.Ref != nil {
			exists, err := c.client.CAPIClusterExists(ctx, rec.Ref.Name, rec.Ref.Namespace)
			if err != nil {
				slog.Warn("could not verify CAPI cluster", "cluster", rec.Ref.Name, "error", err)
				exists = false
			}
			rec.Resolvable = exists
		}

		records = append(records, rec)
	}
	return records, nil
}

// RecordFromUnstructured converts one management cluster object into a
// ClusterRecord. Objects without a spec.clusterRef.capiCluster map are
// attached clusters outside this tool's scope; ok is false for those.
func RecordFromUnstructured(obj unstructured.Unstructured, namespace string) (types.ClusterRecord, bool) {
	capiRef, found, err := unstructured.NestedMap(obj.Object, "spec", "clusterRef", "capiCluster")
	if err != nil || !found || capiRef == nil {
		return types.ClusterRecord{}, false
	}

	rec := types.ClusterRecord{
		Name:      obj.GetName(),
		Namespace: namespace,
		Labels:    obj.GetLabels(),
	}

	if ts := obj.GetCreationTimestamp(); !ts.IsZero() {
		rec.CreationTimestamp = ts.UTC().Format(time.RFC3339)
	}

	name, _ := capiRef["name"].(string)
	refNamespace, _ := capiRef["namespace"].(string)
	if name != "" && refNamespace != "" {
		rec.Ref = &types.ClusterRef{Name: name, Namespace: refNamespace}
	}

	return rec, true
}

// DeleteExecutor commits delete decisions against the cluster.
type DeleteExecutor struct {
	client *KubernetesClient
	dryRun bool
}

// NewDeleteExecutor creates an executor. With dryRun set it only reports
// what it would delete.
func NewDeleteExecutor(client *KubernetesClient, dryRun bool) *DeleteExecutor {
	return &DeleteExecutor{client: client, dryRun: dryRun}
}

// Delete removes the CAPI cluster behind one delete-decided record.
func (e *DeleteExecutor) Delete(ctx context.Context, ev types.Evaluated) error {
	if ev.Record.Ref == nil {
		return fmt.Errorf("cluster %s/%s has no CAPI reference", ev.Record.Namespace, ev.Record.Name)
	}

	if e.dryRun {
		slog.Info("[DRY RUN] would delete cluster",
			"cluster", ev.Record.Ref.Name,
			"namespace", ev.Record.Ref.Namespace,
			"reason", ev.Decision.Reason.String())
		return nil
	}

	if err := e.client.DeleteCAPICluster(ctx, ev.Record.Ref.Name, ev.Record.Ref.Namespace); err != nil {
		return err
	}
	slog.Info("deleted cluster", "cluster", ev.Record.Ref.Name, "namespace", ev.Record.Ref.Namespace)
	return nil
}
