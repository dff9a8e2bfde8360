package services

import (
	"strings"

	"zip-market-etl/models"
	"zip-market-etl/utils"
)

// Filter literals for ZIP-level, all-residential rows.
const (
	RegionTypeZip   = "zip code"
	PropertyTypeAll = "All Residential"
)

// ReduceStats counts what happened to each data line.
type ReduceStats struct {
	Rows          int64
	Blank         int64
	Filtered      int64
	NoZip         int64
	AllNull       int64
	Inserted      int64
	Replaced      int64
	Stale         int64
	TiesDiscarded int64
}

// Reducer folds data rows into one RegionRecord per ZIP, keeping the row
// with the greatest period_end. period_end is compared as a string, which
// assumes a fixed-width sortable format such as YYYY-MM-DD. On equal periods
// the first row seen wins.
type Reducer struct {
	cols          Columns
	logger        *utils.Logger
	progressEvery int64

	records map[string]*models.RegionRecord
	stats   ReduceStats
}

// NewReducer creates a Reducer for the given column layout. progressEvery of
// zero or less disables progress logging.
func NewReducer(cols Columns, logger *utils.Logger, progressEvery int) *Reducer {
	return &Reducer{
		cols:          cols,
		logger:        logger,
		progressEvery: int64(progressEvery),
		records:       make(map[string]*models.RegionRecord),
	}
}

// ProcessLine applies the filter and the latest-wins fold to one data line.
// Row-level problems never return an error; the row is just skipped.
func (r *Reducer) ProcessLine(line string) {
	if strings.TrimSpace(line) == "" {
		r.stats.Blank++
		return
	}

	r.stats.Rows++
	if r.progressEvery > 0 && r.stats.Rows%r.progressEvery == 0 {
		r.logger.Info("[reducer] Processed %d rows, %d zips so far", r.stats.Rows, len(r.records))
	}

	fields := SplitFields(line)

	if StripQuotes(field(fields, r.cols.RegionType)) != RegionTypeZip ||
		StripQuotes(field(fields, r.cols.PropertyType)) != PropertyTypeAll {
		r.stats.Filtered++
		return
	}

	zip, ok := ExtractZip(StripQuotes(field(fields, r.cols.Region)))
	if !ok {
		r.stats.NoZip++
		return
	}

	rec := &models.RegionRecord{
		Zip:           zip,
		PeriodEnd:     StripQuotes(field(fields, r.cols.PeriodEnd)),
		MedianDOM:     ParseMetric(field(fields, r.cols.MedianDOM)),
		MedianPPSF:    ParseMetric(field(fields, r.cols.MedianPPSF)),
		SoldAboveList: ParseMetric(field(fields, r.cols.SoldAboveList)),
	}
	if rec.MedianDOM == nil && rec.MedianPPSF == nil && rec.SoldAboveList == nil {
		r.stats.AllNull++
		return
	}

	existing, found := r.records[zip]
	switch {
	case !found:
		r.store(rec)
		r.stats.Inserted++
	case existing.PeriodEnd < rec.PeriodEnd:
		r.store(rec)
		r.stats.Replaced++
	case existing.PeriodEnd == rec.PeriodEnd:
		r.stats.TiesDiscarded++
	default:
		r.stats.Stale++
	}
}

// store detaches the record's strings from the source line before keeping
// it, so a retained record does not pin the whole line in memory.
func (r *Reducer) store(rec *models.RegionRecord) {
	rec.Zip = strings.Clone(rec.Zip)
	rec.PeriodEnd = strings.Clone(rec.PeriodEnd)
	r.records[rec.Zip] = rec
}

// Records returns the reduction mapping. It must not be modified while the
// Reducer is still in use.
func (r *Reducer) Records() map[string]*models.RegionRecord {
	return r.records
}

// Stats returns a copy of the counters.
func (r *Reducer) Stats() ReduceStats {
	return r.stats
}
