package liftover

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Per-region failures, collected by callers rather than raised.
var (
	// ErrUnmapped: a coordinate has no counterpart in the target assembly.
	ErrUnmapped = errors.New("unmapped")
	// ErrSplitMapping: the region's endpoints map to different target
	// chromosomes.
	ErrSplitMapping = errors.New("split mapping")
)

// Builds recognized by NormalizeBuild.
const (
	BuildHg19 = "hg19"
	BuildHg38 = "hg38"
	BuildHs1  = "hs1" // T2T-CHM13
)

// NormalizeBuild maps common assembly spellings onto one canonical UCSC
// name per build.
func NormalizeBuild(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hg19", "grch37":
		return BuildHg19, nil
	case "hg38", "grch38":
		return BuildHg38, nil
	case "t2t", "hs1", "chm13", "t2t-chm13":
		return BuildHs1, nil
	default:
		return "", fmt.Errorf("unknown assembly %q", name)
	}
}

// Region is a genomic interval in 0-based half-open coordinates.
type Region struct {
	Chrom string
	Start int64
	End   int64
}

// Engine remaps intervals between assemblies. Direct chains cover
// hg19→hg38 and hg38→hs1; hg19→hs1 is composed through hg38. Any other
// pair is a configuration error, not a per-region failure.
type Engine struct {
	store  *ChainStore
	logger *zap.Logger
}

// NewEngine creates an engine over the given chain store.
func NewEngine(store *ChainStore) *Engine {
	return &Engine{store: store, logger: zap.NewNop()}
}

// SetLogger sets the logger for conversion messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Supported reports whether the engine can convert between two builds
// (identity conversions are always supported).
func (e *Engine) Supported(from, to string) bool {
	nf, err1 := NormalizeBuild(from)
	nt, err2 := NormalizeBuild(to)
	if err1 != nil || err2 != nil {
		return false
	}
	if nf == nt {
		return true
	}
	_, err := routeFor(nf, nt)
	return err == nil
}

// routeFor returns the sequence of direct chain pairs that converts nf→nt.
func routeFor(nf, nt string) ([]Pair, error) {
	switch {
	case nf == BuildHg19 && nt == BuildHg38:
		return []Pair{{BuildHg19, BuildHg38}}, nil
	case nf == BuildHg38 && nt == BuildHs1:
		return []Pair{{BuildHg38, BuildHs1}}, nil
	case nf == BuildHg19 && nt == BuildHs1:
		return []Pair{{BuildHg19, BuildHg38}, {BuildHg38, BuildHs1}}, nil
	default:
		return nil, fmt.Errorf("unsupported liftover %s -> %s", nf, nt)
	}
}

// ConvertRegion remaps one region. With identical source and target builds
// the input is returned unchanged without any chain lookup. Returns
// ErrUnmapped or ErrSplitMapping as per-region failures.
func (e *Engine) ConvertRegion(ctx context.Context, chrom string, start, end int64, from, to string) (Region, error) {
	nf, err := NormalizeBuild(from)
	if err != nil {
		return Region{}, err
	}
	nt, err := NormalizeBuild(to)
	if err != nil {
		return Region{}, err
	}

	if nf == nt {
		return Region{Chrom: chrom, Start: start, End: end}, nil
	}

	route, err := routeFor(nf, nt)
	if err != nil {
		return Region{}, err
	}

	region := Region{Chrom: NormalizeChrom(chrom), Start: start, End: end}
	for _, pair := range route {
		chain, err := e.store.Get(ctx, pair)
		if err != nil {
			return Region{}, fmt.Errorf("load chain %s: %w", pair.ChainFileName(), err)
		}
		region, err = convertWith(chain, region)
		if err != nil {
			// A hop that fails discards the whole request.
			return Region{}, err
		}
	}
	return region, nil
}

// convertWith maps a region's two endpoints independently through one
// chain. The region is unmapped if either endpoint fails; endpoints landing
// on different chromosomes are a split mapping. Inverted mappings are
// resolved by swapping the endpoints.
func convertWith(chain *Chain, r Region) (Region, error) {
	starts := chain.Map(r.Chrom, r.Start)
	ends := chain.Map(r.Chrom, r.End)
	if len(starts) == 0 || len(ends) == 0 {
		return Region{}, ErrUnmapped
	}

	if starts[0].Chrom != ends[0].Chrom {
		return Region{}, ErrSplitMapping
	}

	start, end := starts[0].Pos, ends[0].Pos
	if start > end {
		start, end = end, start
	}
	return Region{Chrom: starts[0].Chrom, Start: start, End: end}, nil
}

// NormalizeChrom canonicalizes a chromosome name: bare names gain a "chr"
// prefix and mitochondrial naming variants collapse to chrM.
func NormalizeChrom(chrom string) string {
	if !strings.HasPrefix(chrom, "chr") {
		chrom = "chr" + chrom
	}
	if chrom == "chrMT" {
		chrom = "chrM"
	}
	return chrom
}
