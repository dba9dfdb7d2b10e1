package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/peterhagen/jobpulse/internal/config"
	"github.com/peterhagen/jobpulse/internal/database"
	"github.com/peterhagen/jobpulse/internal/ingest"
	"github.com/peterhagen/jobpulse/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "jobpulse",
	Short:   "Job market signal pipeline",
	Long:    "JobPulse collects job postings from multiple sources, enriches them, and turns them into daily market signals: trends, forecasts, anomaly alerts, and a momentum score.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backfillCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("jobpulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/jobpulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources, API keys, and enrichment.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.Today())
		fmt.Println("Postings:")
		fmt.Printf("  Total collected: %d\n", stats.TotalPostings)
		fmt.Printf("  Days with data: %d\n", stats.FetchDays)
		fmt.Printf("  Sources: %d\n", stats.Sources)
		fmt.Println("\nSignals:")
		fmt.Printf("  Stored forecasts: %d\n", stats.Forecasts)
		fmt.Printf("  Completed runs: %d\n", stats.Runs)

		report, err := db.GetLatestRunReport()
		if err != nil {
			return fmt.Errorf("getting latest run: %w", err)
		}
		if report != nil {
			fmt.Println("\nLatest run:")
			fmt.Printf("  Fetch day: %s\n", report.FetchDay)
			fmt.Printf("  Postings: %d\n", report.PostingCount)
			fmt.Printf("  Alerts: %d\n", report.AlertCount)
			fmt.Printf("  Momentum: %.1f\n", report.MomentumScore)
			if report.Degraded {
				fmt.Println("  Degraded: yes (served from previous batch)")
			}
		}
		return nil
	},
}

// --- fetch command ---

var fetchDay string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect postings from configured sources without running signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		day := fetchDay
		if day == "" {
			day = database.Today()
		}
		if err := validDay(day); err != nil {
			return err
		}

		fmt.Printf("Collecting postings for %s...\n", day)
		orch := ingest.NewOrchestrator(db, pipeline.Adapters(cfg), 0)
		result, err := orch.Run(context.Background(), day)
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Collected: %d\n", len(result.Postings))
		fmt.Printf("  New postings: %d\n", result.Inserted)
		if result.Degraded {
			fmt.Printf("  Degraded: all sources failed, reusing batch from %s\n", result.Day)
		}
		fmt.Println("\nPostings by source:")
		for _, src := range result.Sources {
			if src.Err != nil {
				fmt.Printf("  %s: failed (%s)\n", src.Name, src.Reason())
			} else {
				fmt.Printf("  %s: %d\n", src.Name, src.Count)
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDay, "day", "", "Fetch day (YYYY-MM-DD, default today)")
}

// --- run command ---

var runDay string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> normalize -> enrich -> aggregate -> forecast -> detect -> score -> export",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		day := runDay
		if day == "" {
			day = database.Today()
		}
		if err := validDay(day); err != nil {
			return err
		}

		result := pipeline.New(cfg, db).Run(context.Background(), day)
		printSteps(result)

		if lastErr := stepsErr(result); lastErr != nil {
			return lastErr
		}
		fmt.Printf("\nPipeline complete! Exports written to %s\n", cfg.GetExportDir())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDay, "day", "", "Fetch day (YYYY-MM-DD, default today)")
}

// --- backfill command ---

var backfillDays int

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run the pipeline for a range of past days, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillDays < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		today, _ := time.Parse("2006-01-02", database.Today())
		for i := backfillDays - 1; i >= 0; i-- {
			day := today.AddDate(0, 0, -i).Format("2006-01-02")
			fmt.Printf("\n=== %s ===\n", day)

			result := pipe.Run(context.Background(), day)
			printSteps(result)
			if err := stepsErr(result); err != nil {
				return fmt.Errorf("backfill stopped at %s: %w", day, err)
			}
		}

		fmt.Printf("\nBackfill complete! Exports written to %s\n", cfg.GetExportDir())
		return nil
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillDays, "days", 1, "Number of days to backfill, ending today")
}

func printSteps(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/9: %s\n", i+1, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	if result.Degraded {
		fmt.Println("\nNote: run is degraded; all sources failed and the previous batch was reused.")
	}
}

func stepsErr(result *pipeline.Result) error {
	for _, step := range result.Steps {
		if step.Err != nil {
			return step.Err
		}
	}
	return nil
}

func validDay(day string) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return fmt.Errorf("invalid day %q: expected YYYY-MM-DD", day)
	}
	return nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "jobpulse.db"))
}
