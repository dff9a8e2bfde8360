package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"zip-market-etl/models"
)

// PostgresWriter keeps a snapshot of the reduced mapping in PostgreSQL. Each
// Write replaces the table contents; no history is kept.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return NewPostgresWriterWithDB(db)
}

// NewPostgresWriterWithDB wraps an already opened database handle.
func NewPostgresWriterWithDB(db *sql.DB) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS zip_market_latest (
			zip             CHAR(5)     PRIMARY KEY,
			period_end      TEXT        NOT NULL,
			median_dom      DOUBLE PRECISION,
			median_ppsf     DOUBLE PRECISION,
			sold_above_list DOUBLE PRECISION,
			loaded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_zip_market_latest_period ON zip_market_latest(period_end);
	`)
	return err
}

// Write replaces the snapshot with records inside a single transaction.
func (pw *PostgresWriter) Write(records []*models.RegionRecord) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM zip_market_latest"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 500
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := insertBatch(tx, records[i:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(tx *sql.Tx, batch []*models.RegionRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*5)

	for idx, r := range batch {
		base := idx * 5
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
		valueArgs = append(valueArgs,
			r.Zip, r.PeriodEnd, nullFloat(r.MedianDOM), nullFloat(r.MedianPPSF), nullFloat(r.SoldAboveList))
	}

	query := fmt.Sprintf(`
		INSERT INTO zip_market_latest (zip, period_end, median_dom, median_ppsf, sold_above_list)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll reads the snapshot back, ordered by ZIP.
func (pw *PostgresWriter) FetchAll() ([]*models.RegionRecord, error) {
	rows, err := pw.db.Query(`
		SELECT zip, period_end, median_dom, median_ppsf, sold_above_list
		FROM zip_market_latest
		ORDER BY zip
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []*models.RegionRecord
	for rows.Next() {
		r := &models.RegionRecord{}
		var dom, ppsf, above sql.NullFloat64
		if err := rows.Scan(&r.Zip, &r.PeriodEnd, &dom, &ppsf, &above); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.MedianDOM = floatPtr(dom)
		r.MedianPPSF = floatPtr(ppsf)
		r.SoldAboveList = floatPtr(above)
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
