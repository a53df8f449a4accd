package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/collector"
	"github.com/clustersweep-io/clustersweep/pkg/decision"
	"github.com/clustersweep-io/clustersweep/pkg/history"
	"github.com/clustersweep-io/clustersweep/pkg/integrations"
	"github.com/clustersweep-io/clustersweep/pkg/notify"
	"github.com/clustersweep-io/clustersweep/pkg/policy"
	"github.com/clustersweep-io/clustersweep/pkg/types"
)

var (
	// Build info
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "list", "ls":
		listCmd := flag.NewFlagSet("list", flag.ExitOnError)
		kubeconfig := listCmd.String("kubeconfig", "", "Path to kubeconfig file")
		configPath := listCmd.String("config", "", "Path to application config file")
		policyPath := listCmd.String("policy", "", "Path to policy file")
		namespace := listCmd.String("namespace", "", "Only examine this namespace")
		grace := listCmd.String("grace", "", "Protect clusters younger than this window (e.g. 4h, 1d)")
		noExclusions := listCmd.Bool("no-exclusions", false, "Hide the protected clusters table")

		if err := listCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println("Error parsing flags:", err)
			os.Exit(1)
		}
		handleListCommand(*kubeconfig, *configPath, *policyPath, *namespace, *grace, *noExclusions)

	case "delete", "clean":
		deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
		kubeconfig := deleteCmd.String("kubeconfig", "", "Path to kubeconfig file")
		configPath := deleteCmd.String("config", "", "Path to application config file")
		policyPath := deleteCmd.String("policy", "", "Path to policy file")
		namespace := deleteCmd.String("namespace", "", "Only examine this namespace")
		grace := deleteCmd.String("grace", "", "Protect clusters younger than this window (e.g. 4h, 1d)")
		commit := deleteCmd.Bool("delete", false, "Actually delete clusters (default is dry run)")

		if err := deleteCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println("Error parsing flags:", err)
			os.Exit(1)
		}
		handleDeleteCommand(*kubeconfig, *configPath, *policyPath, *namespace, *grace, *commit)

	case "notify":
		notifyCmd := flag.NewFlagSet("notify", flag.ExitOnError)
		kubeconfig := notifyCmd.String("kubeconfig", "", "Path to kubeconfig file")
		configPath := notifyCmd.String("config", "", "Path to application config file")
		policyPath := notifyCmd.String("policy", "", "Path to policy file")
		namespace := notifyCmd.String("namespace", "", "Only examine this namespace")
		grace := notifyCmd.String("grace", "", "Protect clusters younger than this window (e.g. 4h, 1d)")
		warning := notifyCmd.Int("warning-threshold", -1, "Warning threshold in percent of elapsed lifetime")
		critical := notifyCmd.Int("critical-threshold", -1, "Critical threshold in percent of elapsed lifetime")
		noHistory := notifyCmd.Bool("no-history", false, "Proceed without a history store (disables de-duplication)")

		if err := notifyCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println("Error parsing flags:", err)
			os.Exit(1)
		}
		handleNotifyCommand(*kubeconfig, *configPath, *policyPath, *namespace, *grace, *warning, *critical, *noHistory)

	case "generate-config":
		genCmd := flag.NewFlagSet("generate-config", flag.ExitOnError)
		if err := genCmd.Parse(os.Args[2:]); err != nil {
			fmt.Println("Error parsing flags:", err)
			os.Exit(1)
		}
		if genCmd.NArg() != 1 {
			fmt.Println("Usage: clustersweep generate-config <path>")
			os.Exit(1)
		}
		handleGenerateConfigCommand(genCmd.Arg(0))

	case "version":
		handleVersionCommand()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("clustersweep - Expired Kubernetes Cluster Cleaner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clustersweep <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list              Show clusters marked for deletion and protected clusters")
	fmt.Println("  delete            Delete expired clusters (dry run unless --delete is given)")
	fmt.Println("  notify            Send expiry notifications for clusters nearing deletion")
	fmt.Println("  generate-config   Write an example policy file")
	fmt.Println("  version           Show version information")
	fmt.Println("  help              Show this help message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --kubeconfig      Path to kubeconfig file")
	fmt.Println("  --config          Path to application config file")
	fmt.Println("  --policy          Path to policy file")
	fmt.Println("  --namespace       Only examine this namespace")
	fmt.Println("  --grace           Protect clusters younger than this window")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  clustersweep list --policy policy.yaml")
	fmt.Println("  clustersweep delete --policy policy.yaml --delete")
	fmt.Println("  clustersweep notify --config config.yaml --warning-threshold 80")
	fmt.Println("  clustersweep generate-config policy.yaml")
}

func handleVersionCommand() {
	fmt.Printf("clustersweep %s\n", Version)
	fmt.Printf("Commit: %s\n", Commit)
	fmt.Printf("Built:  %s\n", BuildDate)
}

// loadSetup merges flag values over the application config and builds the
// decision engine. Flags always win over the config file.
func loadSetup(configPath, kubeconfig, policyPath, namespace, grace string) (*types.Config, *decision.Engine, error) {
	cfg, err := integrations.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if kubeconfig != "" {
		cfg.KubeConfig = kubeconfig
	}
	if policyPath != "" {
		cfg.PolicyFile = policyPath
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if grace != "" {
		cfg.Grace = grace
	}

	pol := policy.Default()
	if cfg.PolicyFile != "" {
		pol, err = policy.Load(cfg.PolicyFile)
		if err != nil {
			return nil, nil, err
		}
	}

	engine := decision.NewEngine(pol)
	if cfg.Grace != "" {
		d, err := decision.ParseWindow(cfg.Grace)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid grace window %q: %w", cfg.Grace, err)
		}
		engine.SetGrace(d)
	}

	return cfg, engine, nil
}

// collectInventory connects to the cluster and gathers the records to
// evaluate.
func collectInventory(ctx context.Context, cfg *types.Config) ([]types.ClusterRecord, *collector.KubernetesClient, error) {
	client, err := collector.NewKubernetesClient(cfg.KubeConfig)
	if err != nil {
		return nil, nil, err
	}

	col := collector.NewClusterCollector(client)

	var records []types.ClusterRecord
	if cfg.Namespace != "" {
		records, err = col.CollectByNamespace(ctx, cfg.Namespace)
	} else {
		records, err = col.CollectAll(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	return records, client, nil
}

// openHistoryStore builds the configured history store. Backend "none"
// returns a nil store and no error.
func openHistoryStore(ctx context.Context, cfg *types.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case "", "none":
		return nil, nil
	case "redis":
		return history.NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		return history.NewPostgresStore(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown history backend %q (want redis, postgres or none)", cfg.HistoryBackend)
	}
}

func handleListCommand(kubeconfig, configPath, policyPath, namespace, grace string, noExclusions bool) {
	ctx := context.Background()
	start := time.Now()

	cfg, engine, err := loadSetup(configPath, kubeconfig, policyPath, namespace, grace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	records, _, err := collectInventory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("ℹ️  No clusters found")
		return
	}

	deleteSet, protectSet := engine.Partition(records, time.Now())
	countEvaluations(deleteSet, protectSet)
	integrations.RunDuration.Observe(time.Since(start).Seconds())

	fmt.Printf("🗑️  Clusters marked for deletion: %d\n\n", len(deleteSet))
	printEvaluatedTable(deleteSet)

	if !noExclusions {
		fmt.Printf("🛡️  Protected clusters: %d\n\n", len(protectSet))
		printEvaluatedTable(protectSet)
	}
}

func handleDeleteCommand(kubeconfig, configPath, policyPath, namespace, grace string, commit bool) {
	ctx := context.Background()
	start := time.Now()

	cfg, engine, err := loadSetup(configPath, kubeconfig, policyPath, namespace, grace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	records, client, err := collectInventory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	deleteSet, protectSet := engine.Partition(records, time.Now())
	countEvaluations(deleteSet, protectSet)
	integrations.RunDuration.Observe(time.Since(start).Seconds())

	if len(deleteSet) == 0 {
		fmt.Println("✅ No clusters matched the deletion criteria")
		return
	}

	if !commit {
		fmt.Printf("🔍 [DRY RUN] %d clusters would be deleted (pass --delete to commit):\n\n", len(deleteSet))
	} else {
		fmt.Printf("🗑️  Deleting %d clusters:\n\n", len(deleteSet))
	}
	printEvaluatedTable(deleteSet)

	// History clearing after a real deletion is best effort: a dead store
	// must not block cleanup.
	var store history.Store
	if commit {
		store, err = openHistoryStore(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: history store unavailable, stale entries will not be cleared: %v\n", err)
			store = nil
		}
		if store != nil {
			defer func() { _ = store.Close() }()
		}
	}

	executor := collector.NewDeleteExecutor(client, !commit)

	var deleted []types.Evaluated
	failures := 0
	for _, ev := range deleteSet {
		if err := executor.Delete(ctx, ev); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to delete %s/%s: %v\n", ev.Record.TargetNamespace(), ev.Record.TargetName(), err)
			integrations.DeletionsTotal.WithLabelValues("failed").Inc()
			failures++
			continue
		}
		integrations.DeletionsTotal.WithLabelValues("success").Inc()
		deleted = append(deleted, ev)

		if commit && store != nil {
			if err := store.ClearHistory(ctx, ev.Record.TargetNamespace(), ev.Record.TargetName()); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Warning: could not clear notification history for %s/%s: %v\n",
					ev.Record.TargetNamespace(), ev.Record.TargetName(), err)
			}
		}
	}

	if commit {
		fmt.Printf("\n✅ Deleted %d of %d clusters\n", len(deleted), len(deleteSet))

		// The summary notification never fails the run.
		if notifier := integrations.BuildNotifier(cfg); notifier != nil && len(deleted) > 0 {
			title, body := notify.FormatDeletionSummary(deleted)
			if err := notifier.SendAlert(title, body, types.SeverityWarning); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Warning: deletion summary notification failed: %v\n", err)
			}
		}
	} else {
		fmt.Printf("\n🔍 [DRY RUN] %d clusters would be deleted\n", len(deleteSet))
	}

	if commit && failures > 0 {
		os.Exit(1)
	}
}

func handleNotifyCommand(kubeconfig, configPath, policyPath, namespace, grace string, warning, critical int, noHistory bool) {
	ctx := context.Background()
	start := time.Now()

	cfg, engine, err := loadSetup(configPath, kubeconfig, policyPath, namespace, grace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	if warning >= 0 {
		cfg.WarningThreshold = warning
	}
	if critical >= 0 {
		cfg.CriticalThreshold = critical
	}
	if err := notify.ValidateThresholds(cfg.WarningThreshold, cfg.CriticalThreshold); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	// Without history every run would re-send every alert, so a reachable
	// store is mandatory unless the operator explicitly opts out.
	var store history.Store
	if noHistory {
		fmt.Println("⚠️  Running without notification history: de-duplication is disabled, alerts may repeat")
	} else {
		store, err = openHistoryStore(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Error: history store unavailable (use --no-history to proceed without de-duplication): %v\n", err)
			os.Exit(1)
		}
		if store == nil {
			fmt.Fprintln(os.Stderr, "❌ Error: no history backend configured (set history_backend, or pass --no-history)")
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
	}

	records, _, err := collectInventory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	deleteSet, protectSet := engine.Partition(records, now)
	countEvaluations(deleteSet, protectSet)

	criticalSet, warningSet, err := notify.BuildCandidates(deleteSet, protectSet, cfg.WarningThreshold, cfg.CriticalThreshold, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	notifier := integrations.BuildNotifier(cfg)
	if notifier == nil {
		fmt.Println("ℹ️  No notification destination configured, reporting only")
	}

	runner := notify.NewRunner(store, notifier, cfg.HistoryTTL)

	cleared, err := runner.ReconcileStale(ctx, criticalSet, warningSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	if cleared > 0 {
		fmt.Printf("🧹 Cleared stale notification history for %d clusters\n", cleared)
	}

	newCritical, err := runner.FilterNew(ctx, criticalSet, types.SeverityCritical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	newWarning, err := runner.FilterNew(ctx, warningSet, types.SeverityWarning)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🚨 Critical: %d total, %d new\n", len(criticalSet), len(newCritical))
	printCandidateTable(newCritical, now)
	fmt.Printf("⚠️  Warning: %d total, %d new\n", len(warningSet), len(newWarning))
	printCandidateTable(newWarning, now)

	if err := runner.Send(ctx, newCritical, types.SeverityCritical, cfg.CriticalThreshold, now); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	if err := runner.Send(ctx, newWarning, types.SeverityWarning, cfg.WarningThreshold, now); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}

	integrations.RunDuration.Observe(time.Since(start).Seconds())
	fmt.Println("✅ Notification run complete")
}

func handleGenerateConfigCommand(path string) {
	if err := policy.WriteExample(path); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Example policy written to %s\n", path)
}

func countEvaluations(deleteSet, protectSet []types.Evaluated) {
	integrations.EvaluationsTotal.WithLabelValues("delete").Add(float64(len(deleteSet)))
	integrations.EvaluationsTotal.WithLabelValues("protect").Add(float64(len(protectSet)))
}

func printEvaluatedTable(evs []types.Evaluated) {
	if len(evs) == 0 {
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tNAMESPACE\tCAPI CLUSTER\tOWNER\tEXPIRES\tREASON")

	for _, ev := range evs {
		capi := "N/A"
		if ev.Record.Ref != nil {
			capi = ev.Record.Ref.Namespace + "/" + ev.Record.Ref.Name
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Record.Name,
			ev.Record.Namespace,
			capi,
			ev.Record.Owner(),
			ev.Record.ExpiresLabel(),
			ev.Decision.Reason.String())
	}
	_ = w.Flush()
	fmt.Println()
}

func printCandidateTable(candidates []types.Candidate, now time.Time) {
	if len(candidates) == 0 {
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAMESPACE\tCLUSTER\tOWNER\tEXPIRES\t% ELAPSED\tREMAINING")

	for _, c := range candidates {
		d := notify.Data(c, now)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\t%s\n",
			d.Namespace,
			d.ClusterName,
			d.Owner,
			d.Expires,
			d.ElapsedPct,
			d.TimeRemaining)
	}
	_ = w.Flush()
	fmt.Println()
}
