package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/ingest"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/pipeline"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/repository"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/version"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// DependencyProvider allows injection for testability
// (in production, use real implementations)
type DependencyProvider struct {
	Pipeline   *pipeline.Pipeline
	Repository repository.Repository
}

// newRootCmd wires up the CLI with the given dependencies
func newRootCmd(provider *DependencyProvider, logger zerolog.Logger) *cobra.Command {
	var (
		dbPath       string
		outputFormat string
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:   "reconciler",
		Short: "OT Asset Reconciler - Reconcile engineering inventories with network discovery data",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	var (
		engineeringFiles []string
		discoveryFiles   []string
		pcapFiles        []string
		industryID       string
		referenceDate    string
		parallelism      int
		clearDB          bool
	)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation over engineering and discovery source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(engineeringFiles) == 0 && len(discoveryFiles) == 0 && len(pcapFiles) == 0 {
				return fmt.Errorf("at least one --engineering, --discovery or --pcap file is required")
			}

			opts := pipeline.Options{Industry: industryID, Parallelism: parallelism}
			if referenceDate != "" {
				reference, err := time.Parse("2006-01-02", referenceDate)
				if err != nil {
					return fmt.Errorf("invalid --reference date %q: %w", referenceDate, err)
				}
				opts.Reference = reference
			}

			feeds, err := loadFeeds(engineeringFiles, discoveryFiles, pcapFiles)
			if err != nil {
				return err
			}

			if clearDB {
				if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to clear database: %w", err)
				}
			}

			// If not injected, use real implementations
			if provider.Pipeline == nil || provider.Repository == nil {
				repo, err := repository.NewSQLiteRepository(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				pipe, err := pipeline.New(logger)
				if err != nil {
					return err
				}
				provider.Repository = repo
				provider.Pipeline = pipe
			}

			startTime := time.Now()
			result, err := provider.Pipeline.Run(context.Background(), feeds, opts)
			if err != nil {
				return err
			}

			if err := persistResult(provider.Repository, result); err != nil {
				return err
			}
			if err := provider.Repository.Commit(); err != nil {
				return err
			}
			if err := provider.Repository.Close(); err != nil {
				return err
			}

			logger.Info().
				Str("run_id", result.RunID).
				Int("assets", len(result.Assets)).
				Dur("duration", time.Since(startTime)).
				Msg("Reconciliation complete")
			return formatResult(result, outputFormat)
		},
	}
	reconcileCmd.Flags().StringArrayVar(&engineeringFiles, "engineering", nil, "Engineering inventory CSV file (repeatable)")
	reconcileCmd.Flags().StringArrayVar(&discoveryFiles, "discovery", nil, "Network discovery CSV file (repeatable)")
	reconcileCmd.Flags().StringArrayVar(&pcapFiles, "pcap", nil, "Packet capture file used as a discovery source (repeatable)")
	reconcileCmd.Flags().StringVar(&industryID, "industry", "", "Force an industry instead of detecting one (e.g. oil_gas)")
	reconcileCmd.Flags().StringVar(&referenceDate, "reference", "", "Reference date for lifecycle and staleness computation (YYYY-MM-DD)")
	reconcileCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Enrichment worker count (0 = number of CPUs)")
	reconcileCmd.Flags().BoolVar(&clearDB, "clear", false, "Clear the database before the run")
	reconcileCmd.Flags().StringVar(&dbPath, "db-path", "reconciler.sqlite", "Path to the SQLite database file")
	reconcileCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")

	listRunsCmd := &cobra.Command{
		Use:   "list-runs",
		Short: "List stored reconciliation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(provider, dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			runs, err := repo.ListRuns()
			if err != nil {
				return err
			}
			return formatRuns(runs, outputFormat)
		},
	}
	listRunsCmd.Flags().StringVar(&dbPath, "db-path", "reconciler.sqlite", "Path to the SQLite database file")
	listRunsCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")

	var runID string

	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "List the canonical assets of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(provider, dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			id, err := resolveRunID(repo, runID)
			if err != nil {
				return err
			}
			assets, err := repo.GetAssets(id)
			if err != nil {
				return err
			}
			return formatAssets(assets, outputFormat)
		},
	}
	assetsCmd.Flags().StringVar(&dbPath, "db-path", "reconciler.sqlite", "Path to the SQLite database file")
	assetsCmd.Flags().StringVar(&runID, "run", "", "Run ID (default: most recent run)")
	assetsCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json, csv")

	gapsCmd := &cobra.Command{
		Use:   "gaps",
		Short: "List the visibility gaps of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(provider, dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			id, err := resolveRunID(repo, runID)
			if err != nil {
				return err
			}
			gaps, err := repo.GetGaps(id)
			if err != nil {
				return err
			}
			return formatGaps(gaps, outputFormat)
		},
	}
	gapsCmd.Flags().StringVar(&dbPath, "db-path", "reconciler.sqlite", "Path to the SQLite database file")
	gapsCmd.Flags().StringVar(&runID, "run", "", "Run ID (default: most recent run)")
	gapsCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json, csv")

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the provenance event log of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(provider, dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			id, err := resolveRunID(repo, runID)
			if err != nil {
				return err
			}
			events, err := repo.GetProvenanceEvents(id)
			if err != nil {
				return err
			}
			return formatEvents(events, outputFormat)
		},
	}
	auditCmd.Flags().StringVar(&dbPath, "db-path", "reconciler.sqlite", "Path to the SQLite database file")
	auditCmd.Flags().StringVar(&runID, "run", "", "Run ID (default: most recent run)")
	auditCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetBuildInfo()
			fmt.Printf("reconciler %s\n", version.GetFullVersion())
			if info.BuildTime != "" {
				fmt.Printf("built %s\n", info.BuildTime)
			}
		},
	}

	rootCmd.AddCommand(reconcileCmd, listRunsCmd, assetsCmd, gapsCmd, auditCmd, versionCmd)
	return rootCmd
}

// loadFeeds reads all source files into pipeline feeds. Engineering and
// discovery CSVs keep their declared role; pcap files are always discovery.
func loadFeeds(engineering, discovery, pcaps []string) ([]pipeline.Feed, error) {
	feeds := []pipeline.Feed{}
	for _, path := range engineering {
		source, err := ingest.ReadCSVFile(path)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feedFrom(source, model.SourceEngineering))
	}
	for _, path := range discovery {
		source, err := ingest.ReadCSVFile(path)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feedFrom(source, model.SourceDiscovery))
	}
	for _, path := range pcaps {
		source, err := ingest.ReadPCAPFile(path)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feedFrom(source, model.SourceDiscovery))
	}
	return feeds, nil
}

func feedFrom(source *ingest.Source, kind model.SourceKind) pipeline.Feed {
	return pipeline.Feed{
		SourceID: source.SourceID,
		Checksum: source.Checksum,
		Kind:     kind,
		Rows:     source.Rows,
	}
}

func openRepository(provider *DependencyProvider, dbPath string) (repository.Repository, error) {
	if provider.Repository != nil {
		return provider.Repository, nil
	}
	repo, err := repository.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repo, nil
}

// resolveRunID returns the given run ID or, when empty, the most recent one.
func resolveRunID(repo repository.Repository, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	runs, err := repo.ListRuns()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no stored runs")
	}
	return runs[0].RunID, nil
}

func persistResult(repo repository.Repository, result *pipeline.Result) error {
	summary := &repository.RunSummary{
		RunID:           result.RunID,
		Industry:        result.Industry,
		CreatedAt:       result.Audit.GeneratedAt,
		AssetCount:      len(result.Assets),
		GapCount:        len(result.Gaps.Gaps),
		CoveragePercent: result.MatchStats.CoveragePercent,
		EvidenceHash:    result.Audit.EvidenceHash,
	}
	if err := repo.AddRun(summary); err != nil {
		return err
	}
	if err := repo.AddAssets(result.RunID, result.Assets); err != nil {
		return err
	}
	if err := repo.AddGaps(result.RunID, result.Gaps.Gaps); err != nil {
		return err
	}
	return repo.AddProvenanceEvents(result.Audit.Events)
}

// formatResult prints the run summary for interactive use; json emits the
// whole result for downstream tooling.
func formatResult(result *pipeline.Result, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	default: // table
		fmt.Printf("Reconciliation Run %s\n", result.RunID)
		fmt.Printf("=====================================================\n\n")
		if result.Industry != "" {
			fmt.Printf("Industry: %s (confidence %.1f%%)\n", result.Industry, result.Detection.Confidence)
		} else {
			fmt.Printf("Industry: not reliably detected (%s)\n", result.Detection.Reason)
		}
		stats := result.MatchStats
		fmt.Printf("Engineering records: %d\n", stats.EngineeringTotal)
		fmt.Printf("Discovery records:   %d\n", stats.DiscoveryTotal)
		fmt.Printf("Matched:             %d (%d%% coverage)\n", stats.MatchedCount, stats.CoveragePercent)
		fmt.Printf("Blind spots:         %d\n", stats.BlindSpotCount)
		fmt.Printf("Orphans:             %d\n\n", stats.OrphanCount)

		summary := result.Gaps.Summary
		fmt.Printf("Gaps: %d total (%d critical, %d high)\n", summary.Total,
			summary.BySeverity[model.SeverityCritical], summary.BySeverity[model.SeverityHigh])
		fmt.Printf("Portfolio risk: average score %.1f over %d assets\n", result.Portfolio.AverageScore, result.Portfolio.AssetCount)
		if len(result.Portfolio.TopAssets) > 0 {
			top := result.Portfolio.TopAssets[0]
			fmt.Printf("Highest risk asset: %s (score %d, %s)\n", top.AssetID, top.NormalizedScore, top.Level)
		}
		if len(result.CriticalPath) > 0 {
			entry := result.CriticalPath[0]
			fmt.Printf("Largest blast radius: %s (%d assets, %d units)\n",
				entry.AssetID, entry.AffectedAssets, entry.AffectedUnits)
		}
		fmt.Printf("\nEvidence hash: %s\n", result.Audit.EvidenceHash)
		for _, recommendation := range result.Gaps.Recommendations {
			fmt.Printf("  - %s\n", recommendation)
		}
	}
	return nil
}

func formatRuns(runs []*repository.RunSummary, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	default: // table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "RUN ID\tCREATED\tINDUSTRY\tASSETS\tGAPS\tCOVERAGE\n")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d%%\n",
				run.RunID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Industry,
				run.AssetCount, run.GapCount, run.CoveragePercent)
		}
		w.Flush()
	}
	return nil
}

func formatAssets(assets []model.CanonicalAsset, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(assets)
	case "csv":
		fmt.Printf("ID,TagID,Origin,Unit,Category,Tier,Lifecycle,RiskScore,RiskLevel\n")
		for _, asset := range assets {
			fmt.Printf("%s,%s,%s,%s,%s,%d,%s,%d,%s\n", asset.ID, assetTag(&asset), asset.Origin,
				assetUnit(&asset), asset.Context.Category, asset.Classification.Tier,
				asset.Lifecycle.State, riskScore(&asset), riskLevel(&asset))
		}
	default: // table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tTAG\tORIGIN\tUNIT\tCATEGORY\tTIER\tLIFECYCLE\tRISK\n")
		for _, asset := range assets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%d (%s)\n", asset.ID, assetTag(&asset),
				asset.Origin, assetUnit(&asset), asset.Context.Category, asset.Classification.Tier,
				asset.Lifecycle.State, riskScore(&asset), riskLevel(&asset))
		}
		w.Flush()
	}
	return nil
}

func assetTag(asset *model.CanonicalAsset) string {
	if primary := asset.Primary(); primary != nil {
		if primary.TagID != "" {
			return primary.TagID
		}
		return primary.IPAddress
	}
	return ""
}

func assetUnit(asset *model.CanonicalAsset) string {
	if primary := asset.Primary(); primary != nil {
		return primary.Unit
	}
	return ""
}

func riskScore(asset *model.CanonicalAsset) int {
	if asset.Risk != nil {
		return asset.Risk.NormalizedScore
	}
	return 0
}

func riskLevel(asset *model.CanonicalAsset) model.RiskLevel {
	if asset.Risk != nil {
		return asset.Risk.Level
	}
	return model.RiskInfo
}

func formatGaps(gaps []model.Gap, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(gaps)
	case "csv":
		fmt.Printf("Type,Severity,Unit,TagID,Reason\n")
		for _, gap := range gaps {
			fmt.Printf("%s,%s,%s,%s,%q\n", gap.Type, gap.Severity, gap.Unit, gap.TagID, gap.Reason)
		}
	default: // table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "TYPE\tSEVERITY\tUNIT\tTAG\tREASON\n")
		for _, gap := range gaps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", gap.Type, gap.Severity, gap.Unit, gap.TagID, gap.Reason)
		}
		w.Flush()
	}
	return nil
}

func formatEvents(events []model.ProvenanceEvent, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(events)
	default: // table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SEQ\tTIMESTAMP\tTYPE\tASSET\tSOURCE\tDETAIL\n")
		for _, event := range events {
			details := make([]string, 0, len(event.Detail))
			for key, value := range event.Detail {
				details = append(details, key+"="+value)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", event.Sequence,
				event.Timestamp.Format(time.RFC3339), event.Type, event.AssetID,
				event.SourceID, strings.Join(details, " "))
		}
		w.Flush()
	}
	return nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	provider := &DependencyProvider{}
	rootCmd := newRootCmd(provider, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
