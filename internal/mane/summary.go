// Package mane maps gene symbols to representative transcripts using the
// MANE summary with Ensembl-canonical fallback.
package mane

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Transcript designation sources, in priority order.
const (
	StatusSelect       = "MANE Select"
	StatusPlusClinical = "MANE Plus Clinical"
	StatusCanonical    = "Ensembl Canonical"
)

// statusRank orders designations for per-symbol deduplication.
func statusRank(status string) int {
	switch status {
	case StatusSelect:
		return 0
	case StatusPlusClinical:
		return 1
	default:
		return 2
	}
}

// Record is one row of the MANE summary.
type Record struct {
	Symbol     string // HGNC symbol
	EnsemblNuc string // Ensembl transcript ID (versioned)
	RefSeqNuc  string // RefSeq transcript ID (versioned)
	Status     string // MANE Select or MANE Plus Clinical
	GeneID     string // Ensembl gene ID
	Chrom      string // GRCh38 chromosome
}

// Download location for the MANE summary.
const (
	SummaryURL      = "https://ftp.ncbi.nlm.nih.gov/refseq/MANE/MANE_human/current/MANE.GRCh38.summary.txt.gz"
	SummaryFileName = "MANE.summary.txt.gz"
)

// ParseSummary parses the tab-separated MANE summary. Columns are located
// by header name, so column reordering between releases is tolerated.
func ParseSummary(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read summary header: %w", err)
		}
		return nil, nil
	}

	header := strings.Split(strings.TrimPrefix(scanner.Text(), "#"), "\t")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"symbol", "Ensembl_nuc", "MANE_status"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("summary is missing column %q", required)
		}
	}

	field := func(fields []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var records []Record
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		rec := Record{
			Symbol:     field(fields, "symbol"),
			EnsemblNuc: field(fields, "Ensembl_nuc"),
			RefSeqNuc:  field(fields, "RefSeq_nuc"),
			Status:     field(fields, "MANE_status"),
			GeneID:     field(fields, "Ensembl_Gene"),
			Chrom:      field(fields, "GRCh38_chr"),
		}
		if rec.Symbol == "" || rec.EnsemblNuc == "" {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan summary: %w", err)
	}

	return records, nil
}

// OpenSummaryFile parses a MANE summary from disk, transparently
// decompressing .gz files.
func OpenSummaryFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open MANE summary: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open MANE summary %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return ParseSummary(r)
}

// MemorySource is a SummarySource backed by parsed summary records, for
// running without the DuckDB store.
type MemorySource map[string]Record

// NewMemorySource builds an in-memory source from raw summary records.
func NewMemorySource(records []Record) MemorySource {
	return MemorySource(BestBySymbol(records))
}

// BestTranscripts returns the best record per matched symbol, keyed by
// upper-cased symbol.
func (m MemorySource) BestTranscripts(symbols []string) (map[string]Record, error) {
	out := make(map[string]Record, len(symbols))
	for _, s := range symbols {
		key := strings.ToUpper(s)
		if rec, ok := m[key]; ok {
			out[key] = rec
		}
	}
	return out, nil
}

// BestBySymbol reduces records to at most one per upper-cased symbol,
// preferring MANE Select over MANE Plus Clinical.
func BestBySymbol(records []Record) map[string]Record {
	best := make(map[string]Record, len(records))
	for _, rec := range records {
		key := strings.ToUpper(rec.Symbol)
		if cur, ok := best[key]; !ok || statusRank(rec.Status) < statusRank(cur.Status) {
			best[key] = rec
		}
	}
	return best
}
