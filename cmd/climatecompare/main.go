// Command climatecompare compares CMIP6 model output against ARM ground
// observations for one site and period: it searches the ESGF federation,
// downloads the matching granules, downloads the ARM datastream files,
// aligns both as monthly means, and renders an interactive HTML chart. With
// KAFKA_BROKERS set the aligned points are also published to a sink topic;
// with SCHEDULE_INTERVAL set the comparison re-runs on that interval instead
// of once.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tallgrasslabs/climatecompare/internal/adapter/arm"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/chart"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/download"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/esgf"
	httpadapter "github.com/tallgrasslabs/climatecompare/internal/adapter/http"
	kafkaadapter "github.com/tallgrasslabs/climatecompare/internal/adapter/kafka"
	"github.com/tallgrasslabs/climatecompare/internal/adapter/netcdf"
	"github.com/tallgrasslabs/climatecompare/internal/config"
	"github.com/tallgrasslabs/climatecompare/internal/dataset"
	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
	"github.com/tallgrasslabs/climatecompare/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	searcher := esgf.NewCachedSearcher(
		esgf.NewClient(cfg.ESGFSearchURL, cfg.ESGFPageSize, cfg.ESGFTimeout, metrics, logger),
		cfg.ESGFCacheSize,
		metrics,
	)
	armClient := arm.NewClient(cfg.ARMBaseURL, cfg.ARMUser, cfg.ARMToken, cfg.ARMTimeout, logger)

	openGrid := func(path, variable string) (dataset.GridHandle, error) {
		return netcdf.OpenGrid(path, variable, metrics)
	}

	model := pipeline.NewModelSource(
		searcher,
		download.NewManager("esgf", cfg.Workers, cfg.ESGFTimeout, metrics, logger),
		openGrid,
		pipeline.ModelSourceConfig{
			Query:       cfg.Query,
			Site:        cfg.Site,
			PeriodStart: cfg.PeriodStart,
			PeriodEnd:   cfg.PeriodEnd,
			TargetUnit:  cfg.TargetUnit,
			DataDir:     cfg.DataDir,
			ChunkLen:    cfg.ChunkLen,
			Workers:     cfg.Workers,
		},
		logger,
	)

	obs := pipeline.NewObsSource(
		armClient,
		download.NewManager("arm", cfg.Workers, cfg.ARMTimeout, metrics, logger),
		netcdf.OpenSeries,
		pipeline.ObsSourceConfig{
			Datastream:  cfg.ARMDatastream,
			Variable:    cfg.ObsVariable,
			PeriodStart: cfg.PeriodStart,
			PeriodEnd:   cfg.PeriodEnd,
			TargetUnit:  cfg.TargetUnit,
			DataDir:     cfg.DataDir,
		},
		logger,
	)

	renderer := chart.NewRenderer(cfg.OutputPath, logger)

	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaWriter
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(model, obs, renderer, publisher, comparisonMeta(cfg), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := run(ctx, cfg, p, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("comparison failed", "error", runErr)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run executes once, or on a schedule when SCHEDULE_INTERVAL is set. In
// scheduled mode a failed run is logged and retried on the next tick.
func run(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	if cfg.ScheduleInterval <= 0 {
		_, err := p.Run(ctx)
		return err
	}

	job := func() {
		if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduled comparison failed", "error", err)
		}
	}

	// First run immediately so the service becomes ready without waiting a
	// full interval.
	job()

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(cfg.ScheduleInterval).Do(job); err != nil {
		return fmt.Errorf("schedule comparison: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	logger.Info("scheduled mode", "interval", cfg.ScheduleInterval)
	<-ctx.Done()
	return nil
}

func comparisonMeta(cfg *config.Config) domain.ComparisonMeta {
	label := cfg.Query.SourceID + " " + cfg.Query.ExperimentID
	if cfg.Query.VariantLabel != "" {
		label += " " + cfg.Query.VariantLabel
	}
	return domain.ComparisonMeta{
		Site:        cfg.Site,
		Variable:    cfg.Query.VariableID,
		ModelLabel:  label,
		ObsLabel:    cfg.ARMDatastream,
		PeriodStart: cfg.PeriodStart,
		PeriodEnd:   cfg.PeriodEnd,
	}
}
