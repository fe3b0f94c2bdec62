package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detection-eval/benchmark"
	"github.com/nvr-ai/go-detection-eval/util"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mapeval",
		Short: "Mean average precision for object detection",
		Long: `mapeval scores detector predictions against ground truth boxes and
reports COCO style mean average precision over a set of IoU thresholds.

Run 'mapeval run --samples ./annotations' to evaluate a corpus.
Run 'mapeval config > mapeval.yaml' to start from the default configuration.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a directory of annotation files or a dataset file",
		Long: `Load predictions and ground truths, accumulate them image by image and
print per class AP, per threshold AP and the overall mAP.

Settings are resolved in order: defaults, --config file, .env and MAPEVAL_*
environment variables, then command line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			log := util.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

			suite, err := benchmark.NewSuite(cfg, log)
			if err != nil {
				return err
			}

			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			report, err := suite.RunPath(ctx)
			if err != nil {
				return err
			}

			if err := report.WriteTable(cmd.OutOrStdout()); err != nil {
				return err
			}

			if path, err := suite.Save(report); err != nil {
				return err
			} else if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nreport: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "config file path (yaml or json)")
	cmd.Flags().StringP("samples", "s", "", "annotation directory or dataset file")
	cmd.Flags().StringP("output", "o", "", "report output directory")
	cmd.Flags().Float64Slice("thresholds", nil, "IoU thresholds, e.g. 0.5,0.75")
	cmd.Flags().Int("recall-points", 0, "size of the recall grid")
	cmd.Flags().String("labels", "", "label set used to name classes (coco, yolo, voc)")
	cmd.Flags().Int("concurrency", 0, "annotation files decoded in parallel")
	cmd.Flags().Bool("no-save", false, "do not write the JSON report")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "", "log format (text, json)")
	cmd.Flags().Duration("timeout", 30*time.Minute, "evaluation timeout")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and flags.
func resolveConfig(cmd *cobra.Command) (*benchmark.Config, error) {
	flags := cmd.Flags()

	cfg := benchmark.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := benchmark.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("samples") {
		cfg.SamplesPath, _ = flags.GetString("samples")
	}
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("thresholds") {
		cfg.IoUThresholds, _ = flags.GetFloat64Slice("thresholds")
	}
	if flags.Changed("recall-points") {
		cfg.RecallPoints, _ = flags.GetInt("recall-points")
	}
	if flags.Changed("labels") {
		cfg.Labels, _ = flags.GetString("labels")
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency, _ = flags.GetInt("concurrency")
	}
	if noSave, _ := flags.GetBool("no-save"); noSave {
		cfg.SaveReport = false
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}

	if cfg.SamplesPath == "" {
		return nil, fmt.Errorf("samples path is required (--samples, samples_path or MAPEVAL_SAMPLES_PATH)")
	}
	return cfg, nil
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(benchmark.DefaultConfig())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mapeval %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		},
	}
}
