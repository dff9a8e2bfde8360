package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"zip-market-etl/config"
	"zip-market-etl/models"
	"zip-market-etl/services"
	"zip-market-etl/source/redfin"
	"zip-market-etl/storage"
	"zip-market-etl/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Run failed: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== ZIP market tracker ETL starting ===")
	logger.Info("Config: source=%s | output=%s | progress every %d rows",
		cfg.SourceURL, cfg.OutputPath, cfg.ProgressEveryRows)

	body, err := redfin.New(cfg, logger).Open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	result, err := services.NewPipeline(logger, cfg.ProgressEveryRows).Run(body)
	if err != nil {
		return err
	}
	logger.Info("Downloaded %s, decompressed %s, %d zips retained",
		humanize.Bytes(uint64(body.BytesRead())),
		humanize.Bytes(uint64(result.DecompressedBytes)),
		len(result.Records))

	encoder := services.NewEncoder()
	data, err := encoder.Encode(encoder.Build(result.Records))
	if err != nil {
		return err
	}

	jsonWriter := storage.NewJSONWriter(cfg.OutputPath)
	if err := jsonWriter.WriteDocument(data); err != nil {
		return err
	}
	logger.Info("[output] Wrote %s (%s)", jsonWriter.Path(), humanize.Bytes(uint64(len(data))))

	sinkErr := writeSinks(cfg, logger, result.Records)

	summarySvc := services.NewSummaryService(logger)
	summarySvc.Print(summarySvc.Generate(result.Records), result.Stats)

	return sinkErr
}

// writeSinks exports the reduced mapping to the optional CSV and PostgreSQL
// sinks. The JSON document is already written when this runs.
func writeSinks(cfg *config.Config, logger *utils.Logger, records map[string]*models.RegionRecord) error {
	var errs *multierror.Error
	sorted := storage.SortedRecords(records)

	if cfg.CSVOutputPath != "" {
		if err := writeCSV(cfg.CSVOutputPath, sorted); err != nil {
			logger.Error("[csv] Export failed: %v", err)
			errs = multierror.Append(errs, err)
		} else {
			logger.Info("[csv] Exported %d zips to %s", len(sorted), cfg.CSVOutputPath)
		}
	}

	if cfg.PostgresEnabled {
		if err := writePostgres(cfg.DSN(), logger, sorted); err != nil {
			logger.Error("[postgres] Snapshot failed: %v", err)
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

func writeCSV(path string, records []*models.RegionRecord) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	var errs *multierror.Error
	errs = multierror.Append(errs, w.Write(records))
	errs = multierror.Append(errs, w.Close())
	return errs.ErrorOrNil()
}

func writePostgres(dsn string, logger *utils.Logger, records []*models.RegionRecord) error {
	pw, err := storage.NewPostgresWriter(dsn)
	if err != nil {
		return err
	}
	defer pw.Close()

	if err := pw.Write(records); err != nil {
		return err
	}

	stored, err := pw.FetchAll()
	if err != nil {
		return err
	}
	logger.Info("[postgres] Snapshot holds %d zips (table: zip_market_latest)", len(stored))
	return nil
}
