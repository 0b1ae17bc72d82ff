package panel

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gauravchatnobel/gene-panel-designer/internal/bed"
	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
	"github.com/gauravchatnobel/gene-panel-designer/internal/mane"
	"github.com/gauravchatnobel/gene-panel-designer/internal/regions"
)

// TranscriptResolver resolves a requested transcript ID for a gene symbol.
// Implemented by *ensembl.Resolver.
type TranscriptResolver interface {
	Resolve(ctx context.Context, requestedID, geneSymbol string) (*ensembl.Resolution, error)
}

// Gene is one unit of work: a mapped symbol plus its region settings.
type Gene struct {
	Mapping mane.Mapping
	Config  GeneConfig
}

// Options configures a pipeline run.
type Options struct {
	// Padding in bp added to every emitted interval.
	Padding int64
	// RefSeqLabels uses RefSeq (NM) IDs in the name column where available,
	// falling back to Ensembl IDs with a diagnostic.
	RefSeqLabels bool
	// Workers is the worker-pool size; 0 means NumCPU.
	Workers int
}

// TranscriptSwitch reports that a gene's output used a different transcript
// than requested. Informational, not an error.
type TranscriptSwitch struct {
	Gene      string
	Requested string
	Used      string
}

// GeneFailure reports a gene excluded from output.
type GeneFailure struct {
	Gene   string
	Reason string
}

// FilterIssue reports out-of-range exon/intron filter numbers for a gene.
type FilterIssue struct {
	Gene    string
	Class   string // "exon" or "intron"
	Invalid []int
	Total   int
	All     bool // every requested number was invalid
}

// RefSeqIssue reports a gene whose name column reverted to the Ensembl ID.
type RefSeqIssue struct {
	Gene   string
	Reason string
}

// Diagnostics collects everything a run wants to report besides the BED
// output. A run always returns both, regardless of per-gene failures.
type Diagnostics struct {
	Switches        []TranscriptSwitch
	MissingCDS      []string
	Failed          []GeneFailure
	FilterIssues    []FilterIssue
	RefSeqFallbacks []RefSeqIssue
	Regions         int
}

// Runner executes the per-gene design pipeline over a worker pool.
type Runner struct {
	resolver TranscriptResolver
	opts     Options
	logger   *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(resolver TranscriptResolver, opts Options) *Runner {
	return &Runner{
		resolver: resolver,
		opts:     opts,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for per-gene progress and warnings.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// geneOutcome is the result of compiling one gene.
type geneOutcome struct {
	failure   string // non-empty: gene excluded, reason recorded
	res       *ensembl.Resolution
	label     string // transcript label for the name column
	refseqErr string // non-empty: reverted to Ensembl ID
	intervals []regions.Interval
	notices   []regions.Notice
}

// Run compiles all genes and writes their intervals to w in input order.
// Per-gene failures are collected into the returned diagnostics; only
// cancellation or a write error aborts the batch.
func (r *Runner) Run(ctx context.Context, genes []Gene, w *bed.Writer) (*Diagnostics, error) {
	items := make(chan workItem)
	go func() {
		defer close(items)
		for i, g := range genes {
			select {
			case items <- workItem{seq: i, gene: g}:
			case <-ctx.Done():
				return
			}
		}
	}()

	diags := &Diagnostics{}
	results := r.parallelCompile(ctx, items, r.opts.Workers)

	err := orderedCollect(results, func(res workResult) error {
		gene := res.gene.Mapping.Symbol
		out := res.outcome

		if out.failure != "" {
			r.logger.Warn("gene excluded", zap.String("gene", gene), zap.String("reason", out.failure))
			diags.Failed = append(diags.Failed, GeneFailure{Gene: gene, Reason: out.failure})
			return nil
		}

		if out.res.Switched {
			diags.Switches = append(diags.Switches, TranscriptSwitch{
				Gene:      gene,
				Requested: out.res.RequestedID,
				Used:      out.res.UsedID,
			})
		}
		if !out.res.HasCDS {
			diags.MissingCDS = append(diags.MissingCDS, gene)
		}
		if out.refseqErr != "" {
			diags.RefSeqFallbacks = append(diags.RefSeqFallbacks, RefSeqIssue{Gene: gene, Reason: out.refseqErr})
		}
		for _, n := range out.notices {
			switch n.Kind {
			case regions.NoticeExonOutOfRange:
				diags.FilterIssues = append(diags.FilterIssues, FilterIssue{Gene: gene, Class: "exon", Invalid: n.Invalid, Total: n.Total})
			case regions.NoticeAllExonsOutOfRange:
				diags.FilterIssues = append(diags.FilterIssues, FilterIssue{Gene: gene, Class: "exon", Invalid: n.Invalid, Total: n.Total, All: true})
			case regions.NoticeIntronOutOfRange:
				diags.FilterIssues = append(diags.FilterIssues, FilterIssue{Gene: gene, Class: "intron", Invalid: n.Invalid, Total: n.Total})
			case regions.NoticeAllIntronsOutOfRange:
				diags.FilterIssues = append(diags.FilterIssues, FilterIssue{Gene: gene, Class: "intron", Invalid: n.Invalid, Total: n.Total, All: true})
			}
		}

		for _, iv := range out.intervals {
			if err := w.WriteInterval(gene, out.label, out.res.Transcript.Strand, iv); err != nil {
				return fmt.Errorf("write interval: %w", err)
			}
		}
		diags.Regions += len(out.intervals)
		return nil
	})
	if err != nil {
		return diags, err
	}
	if err := ctx.Err(); err != nil {
		return diags, err
	}

	return diags, w.Flush()
}

// compileGene runs the full pipeline for one gene: filter parsing,
// transcript resolution, label selection and region compilation.
func (r *Runner) compileGene(ctx context.Context, g Gene) geneOutcome {
	exonSel, err := regions.ParseFilter(g.Config.ExonFilter)
	if err != nil {
		return geneOutcome{failure: fmt.Sprintf("exon filter %q: %v", g.Config.ExonFilter, err)}
	}
	intronSel, err := regions.ParseFilter(g.Config.IntronFilter)
	if err != nil {
		return geneOutcome{failure: fmt.Sprintf("intron filter %q: %v", g.Config.IntronFilter, err)}
	}

	res, err := r.resolver.Resolve(ctx, g.Mapping.TranscriptID, g.Mapping.Symbol)
	if err != nil {
		return geneOutcome{failure: err.Error()}
	}

	label := res.UsedID
	var refseqErr string
	if r.opts.RefSeqLabels {
		switch {
		case res.Switched:
			refseqErr = "transcript switched"
		case !strings.HasPrefix(g.Mapping.RefSeqID, "NM"):
			refseqErr = "no RefSeq ID available"
		default:
			label = g.Mapping.RefSeqID
		}
	}

	cfg := regions.GeneRegionConfig{
		Include5UTR:     g.Config.Include5UTR,
		Include3UTR:     g.Config.Include3UTR,
		IncludeIntrons:  g.Config.IncludeIntrons,
		ExonSelection:   exonSel,
		IntronSelection: intronSel,
		Flank5:          g.Config.Flank5,
		Flank3:          g.Config.Flank3,
		Padding:         r.opts.Padding,
	}
	intervals, notices := regions.Compile(res.Transcript, cfg)

	return geneOutcome{
		res:       res,
		label:     label,
		refseqErr: refseqErr,
		intervals: intervals,
		notices:   notices,
	}
}
