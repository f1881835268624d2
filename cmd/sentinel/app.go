package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"WalletSentinel/internal/collector"
	"WalletSentinel/internal/config"
	"WalletSentinel/internal/logger"
	"WalletSentinel/internal/metrics"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/pipeline"
	"WalletSentinel/internal/recorder"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	FixtureDir string
	NoRecord   bool
}

func addGlobalFlags(fs *pflag.FlagSet, opts *globalOptions) {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	fs.StringVarP(&opts.ConfigPath, "config", "c", defaultPath, "Path to the YAML config file")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	fs.StringVar(&opts.FixtureDir, "fixtures", "", "Read wallets from fixture files in this directory instead of the API")
	fs.BoolVar(&opts.NoRecord, "no-record", false, "Do not persist theses and eval results to SQLite")
}

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	collector *collector.Collector
	recorder  recorder.Recorder
	pipeline  *pipeline.Pipeline
}

// newApp loads config, runs the validators and wires the analysis stack.
func newApp(opts *globalOptions, validators ...func(*config.Config) error) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.FixtureDir != "" {
		cfg.DataSource.FixtureDir = opts.FixtureDir
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return nil, errors.Wrap(err, "config validation")
		}
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, metrics: metrics.New()}

	var fetcher collector.Fetcher
	if cfg.DataSource.FixtureDir != "" {
		fetcher = collector.NewFileFetcher(cfg.DataSource.FixtureDir)
	} else {
		fetcher = collector.NewAlgoArenaFetcher(cfg.DataSource.BaseURL, collector.AlgoArenaOptions{
			Timeout:      cfg.DataSource.Timeout,
			RateLimitRPS: cfg.DataSource.RateLimitRPS,
			RateBurst:    cfg.DataSource.RateLimitBurst,
			MaxRetries:   cfg.DataSource.MaxRetries,
			ProxyURL:     cfg.Proxy,
		}, a.metrics, log)
	}
	log.Info("data source", zap.String("fetcher", fetcher.Name()))
	a.collector = collector.NewCollector(fetcher, log)

	a.recorder = recorder.NewNoopRecorder()
	if !opts.NoRecord && cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			a.recorder = sr
		}
	}

	a.pipeline = pipeline.New(a.collector,
		pipeline.WithRecorder(a.recorder),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithLogger(log),
	)
	return a, nil
}

// analyzeThesis adapts the pipeline to evaluator.AnalyzeFunc.
func (a *app) analyzeThesis(ctx context.Context, wallet string) (*model.Thesis, error) {
	res, err := a.pipeline.Analyze(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return res.Thesis, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", zap.Error(err))
	}
	_ = a.logger.Sync()
}
