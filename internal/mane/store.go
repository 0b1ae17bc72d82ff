package mane

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// Store keeps the MANE summary in a DuckDB database so repeated panel runs
// query it instead of re-parsing the TSV.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func OpenStore(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS mane_transcripts (
		symbol VARCHAR,
		symbol_upper VARCHAR,
		ensembl_nuc VARCHAR,
		refseq_nuc VARCHAR,
		status VARCHAR,
		gene_id VARCHAR,
		chrom VARCHAR,
		PRIMARY KEY (symbol_upper, ensembl_nuc)
	)`)
	return err
}

// ImportSummary replaces the stored summary with the records from a MANE
// summary file and returns the number of rows imported.
func (s *Store) ImportSummary(path string) (int, error) {
	records, err := OpenSummaryFile(path)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mane_transcripts`); err != nil {
		return 0, fmt.Errorf("clear summary table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO mane_transcripts
		(symbol, symbol_upper, ensembl_nuc, refseq_nuc, status, gene_id, chrom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(rec.Symbol, strings.ToUpper(rec.Symbol),
			rec.EnsemblNuc, rec.RefSeqNuc, rec.Status, rec.GeneID, rec.Chrom)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", rec.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}

// Count returns the number of stored summary rows.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM mane_transcripts`).Scan(&n)
	return n, err
}

// Loaded reports whether the store holds any summary data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// BestTranscripts returns at most one record per requested symbol
// (case-insensitive), preferring MANE Select over MANE Plus Clinical.
// Symbols with no MANE designation are absent from the result.
func (s *Store) BestTranscripts(symbols []string) (map[string]Record, error) {
	if len(symbols) == 0 {
		return map[string]Record{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	args := make([]any, len(symbols))
	for i, sym := range symbols {
		args[i] = strings.ToUpper(strings.TrimSpace(sym))
	}

	query := fmt.Sprintf(`SELECT symbol, ensembl_nuc, refseq_nuc, status, gene_id, chrom
		FROM mane_transcripts
		WHERE symbol_upper IN (%s)
		ORDER BY symbol_upper, CASE status WHEN '%s' THEN 0 WHEN '%s' THEN 1 ELSE 2 END`,
		placeholders, StatusSelect, StatusPlusClinical)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Symbol, &rec.EnsemblNuc, &rec.RefSeqNuc, &rec.Status, &rec.GeneID, &rec.Chrom); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		key := strings.ToUpper(rec.Symbol)
		if _, ok := out[key]; !ok {
			out[key] = rec
		}
	}
	return out, rows.Err()
}
