package mane

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
)

// SummarySource provides prioritized MANE records per symbol. Implemented
// by *Store; tests use an in-memory map.
type SummarySource interface {
	BestTranscripts(symbols []string) (map[string]Record, error)
}

// GeneAPI is the slice of the annotation client the mapper needs for
// non-MANE fallback and alias resolution.
type GeneAPI interface {
	BulkLookupSymbols(ctx context.Context, symbols []string) (map[string]*ensembl.Gene, error)
	LookupSymbol(ctx context.Context, symbol string) (*ensembl.Gene, error)
	LookupGene(ctx context.Context, geneID string) (*ensembl.Gene, error)
	XrefSymbol(ctx context.Context, symbol string) ([]string, error)
}

// Mapping is the representative transcript chosen for one input symbol.
type Mapping struct {
	Input        string // symbol as supplied by the caller
	Symbol       string // official symbol (may differ after alias resolution)
	TranscriptID string // Ensembl transcript ID (versioned for MANE rows)
	RefSeqID     string // RefSeq ID, "-" when unavailable
	Status       string // StatusSelect, StatusPlusClinical or StatusCanonical
	GeneID       string
	Chrom        string
}

// AliasResolved reports whether the official symbol differs from the input.
func (m Mapping) AliasResolved() bool {
	return !strings.EqualFold(m.Input, m.Symbol)
}

// Mapper selects the initial requested transcript for each gene symbol:
// MANE designation first, then the assembly's canonical transcript,
// consulting the curated alias table, service cross-references, and the
// historical-symbol table for misses.
type Mapper struct {
	summary  SummarySource
	api      GeneAPI
	assembly ensembl.Assembly
	logger   *zap.Logger
}

// NewMapper creates a mapper over a summary source and an annotation client.
func NewMapper(summary SummarySource, api GeneAPI, assembly ensembl.Assembly) *Mapper {
	return &Mapper{
		summary:  summary,
		api:      api,
		assembly: assembly,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for fallback and alias messages.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// MapSymbols resolves each input symbol to a representative transcript.
// Symbols that resolve nowhere are returned in missing; they never fail
// the batch.
func (m *Mapper) MapSymbols(ctx context.Context, symbols []string) (mappings []Mapping, missing []string, err error) {
	// Dedupe case-insensitively, preserving input order.
	seen := make(map[string]bool, len(symbols))
	var inputs []string
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToUpper(s)
		if !seen[key] {
			seen[key] = true
			inputs = append(inputs, s)
		}
	}
	if len(inputs) == 0 {
		return nil, nil, nil
	}

	best, err := m.summary.BestTranscripts(inputs)
	if err != nil {
		return nil, nil, err
	}

	var unmatched []string
	for _, input := range inputs {
		rec, ok := best[strings.ToUpper(input)]
		if !ok {
			unmatched = append(unmatched, input)
			continue
		}
		mappings = append(mappings, Mapping{
			Input:        input,
			Symbol:       rec.Symbol,
			TranscriptID: rec.EnsemblNuc,
			RefSeqID:     orDash(rec.RefSeqNuc),
			Status:       rec.Status,
			GeneID:       rec.GeneID,
			Chrom:        rec.Chrom,
		})
	}

	if len(unmatched) == 0 {
		return mappings, nil, nil
	}

	m.logger.Info("falling back to assembly canonical transcripts",
		zap.Int("genes", len(unmatched)),
		zap.String("assembly", string(m.assembly)))

	bulk, err := m.api.BulkLookupSymbols(ctx, unmatched)
	if err != nil {
		return nil, nil, err
	}

	for _, input := range unmatched {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		g := bulk[input]
		if g == nil {
			g = m.resolveAlias(ctx, input)
		}
		if g == nil {
			missing = append(missing, input)
			continue
		}

		tid := canonicalOf(g)
		if tid == "" {
			missing = append(missing, input)
			continue
		}

		symbol := g.Symbol
		if symbol == "" {
			symbol = input
		}
		mappings = append(mappings, Mapping{
			Input:        input,
			Symbol:       symbol,
			TranscriptID: tid,
			RefSeqID:     "-",
			Status:       StatusCanonical,
			GeneID:       g.ID,
			Chrom:        g.Chrom,
		})
	}

	return mappings, missing, nil
}

// resolveAlias recovers a gene record for a symbol with no direct hit:
// curated representative-gene aliases first, then cross-reference lookup,
// then the assembly's historical-symbol table.
func (m *Mapper) resolveAlias(ctx context.Context, symbol string) *ensembl.Gene {
	if alias, ok := ensembl.ManualAlias(strings.ToUpper(symbol)); ok {
		if g, err := m.api.LookupSymbol(ctx, alias); err == nil {
			return g
		}
	}

	if ids, err := m.api.XrefSymbol(ctx, symbol); err == nil && len(ids) > 0 {
		if g, err := m.api.LookupGene(ctx, ids[0]); err == nil {
			return g
		}
	}

	if old := ensembl.HistoricalSymbol(m.assembly, strings.ToUpper(symbol)); !strings.EqualFold(old, symbol) {
		if g, err := m.api.LookupSymbol(ctx, old); err == nil {
			return g
		}
	}

	m.logger.Warn("symbol not resolvable", zap.String("symbol", symbol))
	return nil
}

// canonicalOf picks a gene's canonical transcript, or its first transcript
// when none is flagged.
func canonicalOf(g *ensembl.Gene) string {
	for _, t := range g.Transcripts {
		if t.IsCanonical {
			return t.ID
		}
	}
	if len(g.Transcripts) > 0 {
		return g.Transcripts[0].ID
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
