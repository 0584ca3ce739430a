package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ddwtrends/internal/app"
	"ddwtrends/internal/config"
	"ddwtrends/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ddwtrends",
	Short: "Analyze research trends in DDW conference abstracts",
	Long: `ddwtrends scrapes Digestive Disease Week abstract listings,
cleans and classifies the records, obtains trend encodings from a
pre-trained model service, and aggregates temporal, COVID-impact and
geographic statistics into JSON results and chart pages.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load(configPath)
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level)
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full pipeline over the configured year range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.Application) error {
			return a.Run(cmd.Context())
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Scrape one conference year into a raw CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := cmd.Flags().GetInt("year")
		if err != nil {
			return err
		}
		return withApp(func(a *app.Application) error {
			return a.FetchYear(cmd.Context(), year)
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Validate, clean and feature-extract one conference year",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := cmd.Flags().GetInt("year")
		if err != nil {
			return err
		}
		return withApp(func(a *app.Application) error {
			return a.ProcessYear(cmd.Context(), year)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate the combined processed set into a results document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.Application) error {
			_, err := a.Analyze(cmd.Context())
			return err
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render chart pages and the dashboard from the processed set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.Application) error {
			return a.Report(cmd.Context())
		})
	},
}

func withApp(fn func(*app.Application) error) error {
	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer application.Close()

	return fn(application)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults to $DDW_TRENDS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	fetchCmd.Flags().Int("year", 0, "conference year to fetch")
	_ = fetchCmd.MarkFlagRequired("year")
	processCmd.Flags().Int("year", 0, "conference year to process")
	_ = processCmd.MarkFlagRequired("year")

	rootCmd.AddCommand(runCmd, fetchCmd, processCmd, analyzeCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}
