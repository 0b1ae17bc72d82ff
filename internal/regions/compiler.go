package regions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
)

// GeneRegionConfig selects which parts of a transcript become intervals.
// The compiler never mutates it.
type GeneRegionConfig struct {
	Include5UTR    bool
	Include3UTR    bool
	IncludeIntrons bool

	// ExonSelection and IntronSelection use 1-based transcript-order numbers.
	ExonSelection   Selection
	IntronSelection Selection

	// Flank lengths in bp; 0 disables the flank.
	Flank5 int64
	Flank3 int64

	// Padding is added symmetrically to every emitted interval.
	Padding int64
}

// Interval is one labeled output region in 0-based half-open coordinates.
type Interval struct {
	Chrom  string
	Start  int64
	End    int64
	Label  string // e.g. "exon3_CDS", "intron2", "promoter_5prime"
	Number int    // exon/intron number, 0 for flanks
}

// Region label vocabulary.
const (
	LabelPromoterFlank   = "promoter_5prime"
	LabelDownstreamFlank = "downstream_3prime"

	suffixCDS  = "_CDS"
	suffix5UTR = "_5UTR"
	suffix3UTR = "_3UTR"
)

func exonLabel(n int) string   { return fmt.Sprintf("exon%d", n) }
func intronLabel(n int) string { return fmt.Sprintf("intron%d", n) }

// NoticeKind classifies a non-fatal compilation notice.
type NoticeKind int

const (
	// NoticeCDSMissing: the transcript has no CDS; whole exons were emitted
	// without CDS/UTR labels.
	NoticeCDSMissing NoticeKind = iota
	// NoticeExonOutOfRange: the exon filter referenced numbers beyond the
	// transcript's exon count; the invalid numbers were dropped.
	NoticeExonOutOfRange
	// NoticeAllExonsOutOfRange: every requested exon was invalid; no exon
	// intervals were emitted for this gene.
	NoticeAllExonsOutOfRange
	// NoticeIntronOutOfRange: same as NoticeExonOutOfRange, for introns.
	NoticeIntronOutOfRange
	// NoticeAllIntronsOutOfRange: every requested intron was invalid;
	// introns were disabled for this gene.
	NoticeAllIntronsOutOfRange
)

// Notice reports a non-fatal condition encountered during compilation.
type Notice struct {
	Kind    NoticeKind
	Invalid []int // the dropped out-of-range numbers, ascending
	Total   int   // the transcript's exon or intron count
}

// Compile decomposes a transcript model into labeled, numbered, padded
// intervals. It is pure: the same inputs always yield the same intervals.
func Compile(t *ensembl.Transcript, cfg GeneRegionConfig) ([]Interval, []Notice) {
	if len(t.Exons) == 0 {
		return nil, nil
	}

	exons := make([]ensembl.Exon, len(t.Exons))
	copy(exons, t.Exons)
	sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })

	var notices []Notice

	exonSel, _ := validateSelection(cfg.ExonSelection, len(exons), &notices,
		NoticeExonOutOfRange, NoticeAllExonsOutOfRange)

	nIntrons := len(exons) - 1
	intronSel, allIntronsInvalid := validateSelection(cfg.IntronSelection, nIntrons, &notices,
		NoticeIntronOutOfRange, NoticeAllIntronsOutOfRange)

	includeIntrons := cfg.IncludeIntrons
	if allIntronsInvalid {
		includeIntrons = false
	}

	chrom := t.Chrom
	if !strings.HasPrefix(chrom, "chr") {
		chrom = "chr" + chrom
	}

	forward := t.Strand == 1
	total := len(exons)
	hasCDS := t.IsProteinCoding()
	if !hasCDS {
		notices = append(notices, Notice{Kind: NoticeCDSMissing})
	}

	var out []Interval
	emit := func(start1, end1 int64, label string, number int) {
		// 1-based inclusive -> 0-based half-open, then symmetric padding.
		start := start1 - 1 - cfg.Padding
		if start < 0 {
			start = 0
		}
		end := end1 + cfg.Padding
		if end > start {
			out = append(out, Interval{Chrom: chrom, Start: start, End: end, Label: label, Number: number})
		}
	}

	// Flanks are gene-level, strand-aware, and independent of exon/intron
	// filters. A flank that falls entirely off the chromosome start is
	// dropped rather than clamped to a sliver.
	minStart := exons[0].Start
	maxEnd := exons[total-1].End

	if cfg.Flank5 > 0 {
		if forward {
			lo := max(int64(1), minStart-cfg.Flank5)
			if hi := minStart - 1; hi >= lo {
				emit(lo, hi, LabelPromoterFlank, 0)
			}
		} else {
			emit(maxEnd+1, maxEnd+cfg.Flank5, LabelPromoterFlank, 0)
		}
	}
	if cfg.Flank3 > 0 {
		if forward {
			emit(maxEnd+1, maxEnd+cfg.Flank3, LabelDownstreamFlank, 0)
		} else {
			lo := max(int64(1), minStart-cfg.Flank3)
			if hi := minStart - 1; hi >= lo {
				emit(lo, hi, LabelDownstreamFlank, 0)
			}
		}
	}

	for i, ex := range exons {
		num := i + 1
		if !forward {
			num = total - i
		}

		if !exonSel.Contains(num) {
			continue
		}

		base := exonLabel(num)

		if !hasCDS {
			emit(ex.Start, ex.End, base, num)
			continue
		}

		// Split the exon by its overlap with the CDS span. The genomic-lower
		// sub-interval is 5'UTR on the forward strand and 3'UTR on the
		// reverse strand; the genomic-upper sub-interval is the opposite.
		if ex.Start < t.CDSStart {
			if hi := min(ex.End, t.CDSStart-1); hi >= ex.Start {
				if forward {
					if cfg.Include5UTR {
						emit(ex.Start, hi, base+suffix5UTR, num)
					}
				} else if cfg.Include3UTR {
					emit(ex.Start, hi, base+suffix3UTR, num)
				}
			}
		}

		cdsLo := max(ex.Start, t.CDSStart)
		cdsHi := min(ex.End, t.CDSEnd)
		if cdsHi >= cdsLo {
			emit(cdsLo, cdsHi, base+suffixCDS, num)
		}

		if ex.End > t.CDSEnd {
			if lo := max(ex.Start, t.CDSEnd+1); lo <= ex.End {
				if forward {
					if cfg.Include3UTR {
						emit(lo, ex.End, base+suffix3UTR, num)
					}
				} else if cfg.Include5UTR {
					emit(lo, ex.End, base+suffix5UTR, num)
				}
			}
		}
	}

	if includeIntrons {
		for i := 0; i < total-1; i++ {
			num := i + 1
			if !forward {
				num = total - i - 1
			}

			if !intronSel.Contains(num) {
				continue
			}
			// An active exon filter also gates introns: both flanking exons
			// (transcript-order numbers) must be selected.
			if !exonSel.IsAll() {
				loExon, hiExon := i+1, i+2
				if !forward {
					loExon, hiExon = total-i, total-i-1
				}
				if !exonSel.Contains(loExon) || !exonSel.Contains(hiExon) {
					continue
				}
			}

			lo := exons[i].End + 1
			hi := exons[i+1].Start - 1
			if hi >= lo {
				emit(lo, hi, intronLabel(num), num)
			}
		}
	}

	return out, notices
}

// validateSelection drops out-of-range numbers from an explicit selection,
// recording notices. When every requested number is invalid the second
// notice kind is recorded and the returned bool is true; the returned
// selection is then empty and matches nothing.
func validateSelection(sel Selection, total int, notices *[]Notice, partial, exhausted NoticeKind) (Selection, bool) {
	if sel.IsAll() {
		return sel, false
	}

	var invalid []int
	for _, n := range sel.Values() {
		if n < 1 || n > total {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) == 0 {
		return sel, false
	}

	remaining := sel.Without(invalid)
	if remaining.Len() == 0 {
		*notices = append(*notices, Notice{Kind: exhausted, Invalid: invalid, Total: total})
		return remaining, true
	}
	*notices = append(*notices, Notice{Kind: partial, Invalid: invalid, Total: total})
	return remaining, false
}
