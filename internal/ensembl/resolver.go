package ensembl

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TranscriptAPI is the slice of the annotation client the resolver needs.
type TranscriptAPI interface {
	LookupTranscript(ctx context.Context, id string) (*Transcript, error)
	LookupSymbol(ctx context.Context, symbol string) (*Gene, error)
}

// TranscriptNotFoundError is returned when every fallback for a gene is
// exhausted. The gene is excluded from output; the batch continues.
type TranscriptNotFoundError struct {
	Gene         string
	TranscriptID string
}

func (e *TranscriptNotFoundError) Error() string {
	if e.Gene == "" {
		return fmt.Sprintf("no usable transcript for %s", e.TranscriptID)
	}
	return fmt.Sprintf("no usable transcript for %s (%s)", e.Gene, e.TranscriptID)
}

// Resolution is the outcome of resolving one requested transcript.
type Resolution struct {
	Transcript  *Transcript
	RequestedID string // as requested, version stripped
	UsedID      string // the ID actually retrieved
	Switched    bool   // UsedID differs from RequestedID
	HasCDS      bool
}

// Resolver retrieves an authoritative transcript model for a gene on one
// assembly, applying a deterministic fallback chain:
//
//  1. direct lookup of the requested ID
//  2. on failure, the assembly's canonical transcript for the gene symbol
//  3. on success without coding information, the same canonical fallback
//
// The fallback is a single bounded step, never recursive.
type Resolver struct {
	api      TranscriptAPI
	assembly Assembly
	logger   *zap.Logger
}

// NewResolver creates a resolver over the given annotation client.
func NewResolver(api TranscriptAPI, assembly Assembly) *Resolver {
	return &Resolver{
		api:      api,
		assembly: assembly,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for fallback and warning messages.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve retrieves the transcript model for requestedID, falling back to
// the gene's canonical transcript when the requested ID is unavailable or
// lacks coding information on this assembly.
func (r *Resolver) Resolve(ctx context.Context, requestedID, geneSymbol string) (*Resolution, error) {
	requested := StripVersion(requestedID)

	t, err := r.api.LookupTranscript(ctx, requested)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Requested ID unavailable on this assembly. Transient failures have
		// already been retried by the client; try the canonical transcript.
		if geneSymbol == "" {
			return nil, &TranscriptNotFoundError{TranscriptID: requested}
		}
		r.logger.Info("requested transcript unavailable, trying canonical",
			zap.String("gene", geneSymbol),
			zap.String("transcript", requested),
			zap.Error(err))
		return r.resolveCanonical(ctx, requested, geneSymbol)
	}

	used := requested

	if !t.IsProteinCoding() && geneSymbol != "" {
		// The fetch succeeded but the model has no CDS. A coding-incomplete
		// transcript is unusable; fall back like a failed lookup, but keep
		// the fetched model when no distinct canonical exists.
		altID := r.FindCanonical(ctx, geneSymbol)
		if altID != "" && altID != requested {
			alt, altErr := r.api.LookupTranscript(ctx, altID)
			if altErr != nil {
				return nil, &TranscriptNotFoundError{Gene: geneSymbol, TranscriptID: requested}
			}
			t = alt
			used = altID
		}
	}

	return &Resolution{
		Transcript:  t,
		RequestedID: requested,
		UsedID:      used,
		Switched:    used != requested,
		HasCDS:      t.IsProteinCoding(),
	}, nil
}

// resolveCanonical performs the single canonical-transcript fallback step.
func (r *Resolver) resolveCanonical(ctx context.Context, requested, geneSymbol string) (*Resolution, error) {
	altID := r.FindCanonical(ctx, geneSymbol)
	if altID == "" || altID == requested {
		return nil, &TranscriptNotFoundError{Gene: geneSymbol, TranscriptID: requested}
	}

	t, err := r.api.LookupTranscript(ctx, altID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TranscriptNotFoundError{Gene: geneSymbol, TranscriptID: requested}
	}

	return &Resolution{
		Transcript:  t,
		RequestedID: requested,
		UsedID:      altID,
		Switched:    true,
		HasCDS:      t.IsProteinCoding(),
	}, nil
}

// FindCanonical returns the canonical transcript ID for a gene symbol on
// this assembly, or "" if the symbol cannot be resolved. When no transcript
// carries the canonical flag, the longest transcript by genomic span is
// used; this is a heuristic tie-break, not a curated designation.
func (r *Resolver) FindCanonical(ctx context.Context, geneSymbol string) string {
	symbol := HistoricalSymbol(r.assembly, geneSymbol)

	g, err := r.api.LookupSymbol(ctx, symbol)
	if err != nil || g == nil {
		return ""
	}

	var longest string
	var maxSpan int64 = -1
	for _, t := range g.Transcripts {
		if t.IsCanonical {
			return t.ID
		}
		if span := t.End - t.Start; span > maxSpan {
			maxSpan = span
			longest = t.ID
		}
	}
	return longest
}
