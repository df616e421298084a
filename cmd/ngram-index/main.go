// Package main provides the ngram-index CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	ngramindex "github.com/luhtfiimanal/go-ngram-index"
)

type indexFlags struct {
	parquet   string
	chunkSize int64
	output    string
	cont      bool
	ngrams    string
	orders    []int

	mmap          bool
	headroom      float64
	maxEvictions  int
	logLevel      string
	logFormat     string
	metricsFile   string
	memlimitRatio float64
}

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	settings, err := LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newIndexCmd(settings).Execute(); err != nil {
		os.Exit(1)
	}
}

func newIndexCmd(settings Settings) *cobra.Command {
	var f indexFlags

	cmd := &cobra.Command{
		Use:   "ngram-index",
		Short: "Materialize n-gram index shards from Parquet corpus references",
		Long: `Resolve the (file, offset) references of every <n>.parquet record file to
the referenced text lines and write them as fixed-size shards:

  <output>/<n>/<n>-<chunk:05>-of-<count:05>

Without --continue the output tree is wiped first. With --continue, shards
that already exist are skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.ErrOrStderr(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.parquet, "parquet", "p", "", "Directory holding <n>.parquet record files")
	fl.Int64VarP(&f.chunkSize, "chunk_size", "s", settings.ChunkSize, "Rows per output shard")
	fl.StringVarP(&f.output, "output", "o", "", "Output directory")
	fl.BoolVarP(&f.cont, "continue", "c", false, "Resume: skip shards that already exist")
	fl.StringVarP(&f.ngrams, "ngrams", "n", "", "Base directory for the source file paths in the records")
	fl.IntSliceVar(&f.orders, "orders", ngramindex.DefaultOrders(), "N-gram orders to process")

	fl.BoolVar(&f.mmap, "mmap", settings.UseMmap, "Memory-map source files instead of reading them")
	fl.Float64Var(&f.headroom, "headroom", settings.Headroom, "Free memory required before loading a file, as a multiple of its size")
	fl.IntVar(&f.maxEvictions, "max-evictions", settings.MaxEvictions, "Evictions allowed per cache miss (negative = until headroom is met)")
	fl.StringVar(&f.logLevel, "log-level", settings.LogLevel, "Log level (debug, info, warn, error)")
	fl.StringVar(&f.logFormat, "log-format", settings.LogFormat, "Log format (text, json)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
	fl.Float64Var(&f.memlimitRatio, "memlimit-ratio", settings.MemlimitRatio, "Set GOMEMLIMIT to this ratio of cgroup/system memory (0 = off)")

	_ = cmd.MarkFlagRequired("parquet")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newLogger(out io.Writer, level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

func runIndex(stderr io.Writer, f indexFlags) error {
	logger, err := newLogger(stderr, f.logLevel, f.logFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	if f.memlimitRatio > 0 {
		limit, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(f.memlimitRatio),
			memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to set go memory limit")
		} else {
			logger.WithField("limit", humanize.IBytes(uint64(limit))).Info("go memory limit set")
		}
	}

	reg := prometheus.NewRegistry()
	metrics := ngramindex.NewMetrics(reg)

	cfg := ngramindex.DefaultPipelineConfig()
	cfg.OutputDir = f.output
	cfg.ChunkSize = f.chunkSize
	cfg.Orders = f.orders
	cfg.Resume = f.cont
	cfg.BaseDir = f.ngrams
	cfg.Logger = logger
	cfg.Metrics = metrics
	cfg.Cache.UseMmap = f.mmap
	cfg.Cache.Headroom = f.headroom
	cfg.Cache.MaxEvictionsPerMiss = f.maxEvictions

	p, err := ngramindex.NewPipeline(ngramindex.ParquetOpener{Dir: f.parquet}, cfg)
	if err != nil {
		logger.WithError(err).Error("invalid configuration")
		return err
	}

	report, runErr := p.Run()

	for _, or := range report.Orders {
		logger.WithFields(logrus.Fields{
			"order":     or.Order,
			"rows":      or.Rows,
			"written":   or.Written,
			"skipped":   or.Skipped,
			"hit_ratio": fmt.Sprintf("%.2f%%", or.Cache.HitRatio),
			"evictions": or.Cache.Evictions,
		}).Info("order finished")
	}

	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			logger.WithError(err).Error("failed to write metrics file")
			if runErr == nil {
				return err
			}
		}
	}

	if runErr != nil {
		logger.WithError(runErr).Error("indexing failed")
		return runErr
	}
	return nil
}
