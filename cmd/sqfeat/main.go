package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/dataset"
	"github.com/liliang-cn/sqfeat/pkg/monitoring"
)

var (
	configPath  string
	setPath     string
	dbDir       string
	dbName      string
	filePrefix  string
	fileSuffix  string
	labelsPath  string
	pairing     string
	compression string
	metricsFile string
	verbose     bool
	logJSON     bool
	traceSQL    bool

	registry = prometheus.NewRegistry()
	monitor  = monitoring.NewMonitor(registry)
)

var rootCmd = &cobra.Command{
	Use:   "sqfeat",
	Short: "Feature extraction bookkeeping for file datasets",
	Long: `sqfeat tracks every file of a dataset directory in a SQLite store,
computes named features once per file and exports them as a matrix.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsFile == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		return nil
	},
}

// session is an open dataset; labeled is nil for unlabeled datasets
type session struct {
	*dataset.Dataset
	labeled *dataset.LabeledDataset
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	conf := fileConfig{}
	if configPath != "" {
		var err error
		if conf, err = loadFileConfig(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) || *dst == "" {
			*dst = value
		}
	}
	override("set", &conf.Set, setPath)
	override("db", &conf.DB, dbDir)
	override("name", &conf.Name, dbName)
	override("prefix", &conf.Prefix, filePrefix)
	override("suffix", &conf.Suffix, fileSuffix)
	override("labels", &conf.Labels.Path, labelsPath)
	override("pairing", &conf.Labels.Pairing, pairing)
	override("compression", &conf.Compression, compression)

	if conf.Set == "" {
		return nil, fmt.Errorf("dataset directory not specified (--set or config)")
	}

	cfg, err := conf.datasetConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Logger = newLogger()
	cfg.Monitor = monitor
	cfg.TraceSQL = traceSQL

	if cfg.LabelsPath != "" {
		ds, err := dataset.NewLabeled(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open labeled dataset: %w", err)
		}
		return &session{Dataset: ds.Dataset, labeled: ds}, nil
	}

	ds, err := dataset.NewUnlabeled(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	return &session{Dataset: ds}, nil
}

func newLogger() core.Logger {
	level := core.LevelInfo
	if verbose {
		level = core.LevelDebug
	}
	if logJSON {
		slogLevel := slog.LevelInfo
		if verbose {
			slogLevel = slog.LevelDebug
		}
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
		return core.NewSlogLogger(slog.New(handler))
	}
	return core.NewStdLogger(level)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Dataset file (YAML)")
	flags.StringVarP(&setPath, "set", "s", "", "Directory holding the data point files")
	flags.StringVarP(&dbDir, "db", "d", ".", "Directory holding the store file")
	flags.StringVarP(&dbName, "name", "n", "", "Store file name (default test.db, or train.db with --labels)")
	flags.StringVar(&filePrefix, "prefix", "", "Prefix stripped from file names")
	flags.StringVar(&fileSuffix, "suffix", "", "Suffix stripped from file names")
	flags.StringVarP(&labelsPath, "labels", "l", "", "Labels file; makes the dataset labeled")
	flags.StringVar(&pairing, "pairing", "positional", "Label pairing: positional or external_id")
	flags.StringVar(&compression, "compression", "zstd", "Blob compression: none, lz4 or zstd")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&logJSON, "log-json", false, "Log as JSON")
	flags.BoolVar(&traceSQL, "trace-sql", false, "Log SQL statements (with -v)")

	extractCmd.Flags().Bool("force", false, "Recompute features that already exist")
	extractCmd.Flags().Int("progress", 0, "Log progress every N records")

	featuresCmd.Flags().Bool("json", false, "Output as JSON")
	labelsCmd.Flags().Bool("original", false, "Print the raw labels instead of the transformed ones")
	copyCmd.Flags().Bool("force", false, "Overwrite features that already exist")
	dumpCmd.Flags().Bool("force", true, "Overwrite features that already exist (--force=false keeps them)")
	convertCmd.Flags().Int64("start", 1, "First record id")
	convertCmd.Flags().Int64("end", -1, "Last record id, -1 for the last record")

	rootCmd.AddCommand(populateCmd, extractCmd, featuresCmd, labelsCmd, listCmd, copyCmd, dumpCmd, convertCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
