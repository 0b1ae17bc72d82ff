package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
)

// fiveExon returns a coding 5-exon transcript on the given strand with
// exons 100-150, 200-250, 300-350, 400-450, 500-550 and CDS 120-530.
func fiveExon(strand int8) *ensembl.Transcript {
	return &ensembl.Transcript{
		ID:     "ENST00000000001",
		Chrom:  "7",
		Start:  100,
		End:    550,
		Strand: strand,
		Exons: []ensembl.Exon{
			{Start: 100, End: 150},
			{Start: 200, End: 250},
			{Start: 300, End: 350},
			{Start: 400, End: 450},
			{Start: 500, End: 550},
		},
		CDSStart: 120,
		CDSEnd:   530,
	}
}

// nonCoding strips the CDS from a transcript.
func nonCoding(t *ensembl.Transcript) *ensembl.Transcript {
	t.CDSStart, t.CDSEnd = 0, 0
	return t
}

func labels(ivs []Interval) []string {
	out := make([]string, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.Label
	}
	return out
}

func TestCompileForwardNumbering(t *testing.T) {
	tr := nonCoding(fiveExon(1))
	ivs, notices := Compile(tr, GeneRegionConfig{})

	require.Len(t, ivs, 5)
	assert.Equal(t, []string{"exon1", "exon2", "exon3", "exon4", "exon5"}, labels(ivs))
	for i, iv := range ivs {
		assert.Equal(t, i+1, iv.Number)
		assert.Equal(t, "chr7", iv.Chrom)
	}

	// Non-coding transcripts carry a CDS-missing notice.
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeCDSMissing, notices[0].Kind)
}

func TestCompileReverseNumbering(t *testing.T) {
	tr := nonCoding(fiveExon(-1))
	ivs, _ := Compile(tr, GeneRegionConfig{})

	require.Len(t, ivs, 5)
	// Genomic ascending output, transcript-order numbering: the lowest
	// genomic exon is the last exon of a reverse-strand transcript.
	assert.Equal(t, []string{"exon5", "exon4", "exon3", "exon2", "exon1"}, labels(ivs))
	assert.Equal(t, 5, ivs[0].Number)
	assert.Equal(t, 1, ivs[4].Number)
}

func TestCompileCoordinateConversionAndPadding(t *testing.T) {
	tr := nonCoding(fiveExon(1))
	ivs, _ := Compile(tr, GeneRegionConfig{Padding: 10})

	require.Len(t, ivs, 5)
	// 1-based inclusive 100-150 becomes 0-based half-open 99-150, then
	// padding widens both sides.
	assert.Equal(t, int64(89), ivs[0].Start)
	assert.Equal(t, int64(160), ivs[0].End)
}

func TestCompilePaddingClampsAtZero(t *testing.T) {
	tr := &ensembl.Transcript{
		Chrom:  "1",
		Strand: 1,
		Exons:  []ensembl.Exon{{Start: 5, End: 40}},
	}
	ivs, _ := Compile(tr, GeneRegionConfig{Padding: 10})

	require.Len(t, ivs, 1)
	assert.Equal(t, int64(0), ivs[0].Start)
	assert.Equal(t, int64(50), ivs[0].End)
}

func TestCompileIsDeterministic(t *testing.T) {
	cfg := GeneRegionConfig{
		Include5UTR:    true,
		Include3UTR:    true,
		IncludeIntrons: true,
		Flank5:         50,
		Flank3:         50,
		Padding:        5,
	}
	first, _ := Compile(fiveExon(-1), cfg)
	second, _ := Compile(fiveExon(-1), cfg)
	assert.Equal(t, first, second)
}

func TestCompileUTRSplitForward(t *testing.T) {
	cfg := GeneRegionConfig{Include5UTR: true, Include3UTR: true}
	ivs, notices := Compile(fiveExon(1), cfg)
	assert.Empty(t, notices)

	assert.Equal(t, []string{
		"exon1_5UTR", "exon1_CDS",
		"exon2_CDS", "exon3_CDS", "exon4_CDS",
		"exon5_CDS", "exon5_3UTR",
	}, labels(ivs))

	// exon1 100-150 with CDS starting at 120: UTR is 100-119, CDS 120-150.
	assert.Equal(t, int64(99), ivs[0].Start)
	assert.Equal(t, int64(119), ivs[0].End)
	assert.Equal(t, int64(119), ivs[1].Start)
	assert.Equal(t, int64(150), ivs[1].End)

	// exon5 500-550 with CDS ending at 530.
	assert.Equal(t, int64(499), ivs[5].Start)
	assert.Equal(t, int64(530), ivs[5].End)
	assert.Equal(t, int64(530), ivs[6].Start)
	assert.Equal(t, int64(550), ivs[6].End)
}

func TestCompileUTRSplitReverse(t *testing.T) {
	cfg := GeneRegionConfig{Include5UTR: true, Include3UTR: true}
	ivs, _ := Compile(fiveExon(-1), cfg)

	// On the reverse strand the genomic-lower UTR is the 3' end.
	assert.Equal(t, []string{
		"exon5_3UTR", "exon5_CDS",
		"exon4_CDS", "exon3_CDS", "exon2_CDS",
		"exon1_CDS", "exon1_5UTR",
	}, labels(ivs))
}

func TestCompileUTRsOmittedWhenDisabled(t *testing.T) {
	ivs, _ := Compile(fiveExon(1), GeneRegionConfig{})
	assert.Equal(t, []string{
		"exon1_CDS", "exon2_CDS", "exon3_CDS", "exon4_CDS", "exon5_CDS",
	}, labels(ivs))
}

func TestCompileExonFilter(t *testing.T) {
	cfg := GeneRegionConfig{ExonSelection: NewSelection(2)}
	ivs, notices := Compile(fiveExon(1), cfg)
	assert.Empty(t, notices)

	require.Len(t, ivs, 1)
	assert.Equal(t, "exon2_CDS", ivs[0].Label)
	assert.Equal(t, int64(199), ivs[0].Start)
	assert.Equal(t, int64(250), ivs[0].End)
}

func TestCompileExonFilterReverseUsesTranscriptNumbers(t *testing.T) {
	// Exon 2 of a reverse-strand transcript is the second-highest genomic
	// exon (400-450).
	cfg := GeneRegionConfig{ExonSelection: NewSelection(2)}
	ivs, _ := Compile(fiveExon(-1), cfg)

	require.Len(t, ivs, 1)
	assert.Equal(t, "exon2_CDS", ivs[0].Label)
	assert.Equal(t, int64(399), ivs[0].Start)
}

func TestCompileIntrons(t *testing.T) {
	cfg := GeneRegionConfig{IncludeIntrons: true}
	ivs, _ := Compile(nonCoding(fiveExon(1)), cfg)

	assert.Equal(t, []string{
		"exon1", "exon2", "exon3", "exon4", "exon5",
		"intron1", "intron2", "intron3", "intron4",
	}, labels(ivs))

	// intron1 spans 151-199 1-based, 150-199 half-open.
	intron := ivs[5]
	assert.Equal(t, int64(150), intron.Start)
	assert.Equal(t, int64(199), intron.End)
}

func TestCompileIntronNumberingReverse(t *testing.T) {
	cfg := GeneRegionConfig{IncludeIntrons: true, IntronSelection: NewSelection(1)}
	ivs, _ := Compile(nonCoding(fiveExon(-1)), cfg)

	// Intron 1 of a reverse-strand transcript is the highest genomic gap
	// (451-499 1-based).
	require.Len(t, ivs, 6)
	last := ivs[5]
	assert.Equal(t, "intron1", last.Label)
	assert.Equal(t, int64(450), last.Start)
	assert.Equal(t, int64(499), last.End)
}

func TestCompileIntronsGatedByExonFilter(t *testing.T) {
	cfg := GeneRegionConfig{
		IncludeIntrons: true,
		ExonSelection:  NewSelection(2, 3),
	}
	ivs, _ := Compile(nonCoding(fiveExon(1)), cfg)

	// Only intron2 lies between two selected exons.
	assert.Equal(t, []string{"exon2", "exon3", "intron2"}, labels(ivs))
}

func TestCompileFlanksForward(t *testing.T) {
	cfg := GeneRegionConfig{Flank5: 60, Flank3: 30}
	ivs, _ := Compile(nonCoding(fiveExon(1)), cfg)

	require.GreaterOrEqual(t, len(ivs), 2)
	promoter := ivs[0]
	assert.Equal(t, LabelPromoterFlank, promoter.Label)
	assert.Equal(t, 0, promoter.Number)
	// 1-based 40-99 upstream of exon start 100.
	assert.Equal(t, int64(39), promoter.Start)
	assert.Equal(t, int64(99), promoter.End)

	down := ivs[1]
	assert.Equal(t, LabelDownstreamFlank, down.Label)
	assert.Equal(t, int64(550), down.Start)
	assert.Equal(t, int64(580), down.End)
}

func TestCompileFlanksReverse(t *testing.T) {
	cfg := GeneRegionConfig{Flank5: 60, Flank3: 30}
	ivs, _ := Compile(nonCoding(fiveExon(-1)), cfg)

	// 5' flank sits past the genomic end on the reverse strand.
	promoter := ivs[0]
	assert.Equal(t, LabelPromoterFlank, promoter.Label)
	assert.Equal(t, int64(550), promoter.Start)
	assert.Equal(t, int64(610), promoter.End)

	down := ivs[1]
	assert.Equal(t, LabelDownstreamFlank, down.Label)
	assert.Equal(t, int64(69), down.Start)
	assert.Equal(t, int64(99), down.End)
}

func TestCompileFlankDroppedAtChromosomeStart(t *testing.T) {
	tr := &ensembl.Transcript{
		Chrom:  "1",
		Strand: 1,
		Exons:  []ensembl.Exon{{Start: 1, End: 40}},
	}
	ivs, _ := Compile(tr, GeneRegionConfig{Flank5: 100})

	require.Len(t, ivs, 1)
	assert.Equal(t, "exon1", ivs[0].Label)
}

func TestCompileFlankClampedNearChromosomeStart(t *testing.T) {
	tr := &ensembl.Transcript{
		Chrom:  "1",
		Strand: 1,
		Exons:  []ensembl.Exon{{Start: 20, End: 60}},
	}
	ivs, _ := Compile(tr, GeneRegionConfig{Flank5: 100})

	require.Len(t, ivs, 2)
	assert.Equal(t, LabelPromoterFlank, ivs[0].Label)
	assert.Equal(t, int64(0), ivs[0].Start)
	assert.Equal(t, int64(19), ivs[0].End)
}

func TestCompileOutOfRangeExonNumbersDropped(t *testing.T) {
	cfg := GeneRegionConfig{ExonSelection: NewSelection(2, 9)}
	ivs, notices := Compile(fiveExon(1), cfg)

	require.Len(t, ivs, 1)
	assert.Equal(t, "exon2_CDS", ivs[0].Label)

	require.Len(t, notices, 1)
	assert.Equal(t, NoticeExonOutOfRange, notices[0].Kind)
	assert.Equal(t, []int{9}, notices[0].Invalid)
	assert.Equal(t, 5, notices[0].Total)
}

func TestCompileAllExonsOutOfRangeSkipsExonsKeepsFlanks(t *testing.T) {
	cfg := GeneRegionConfig{
		ExonSelection: NewSelection(8, 9),
		Flank5:        50,
	}
	ivs, notices := Compile(fiveExon(1), cfg)

	require.Len(t, ivs, 1)
	assert.Equal(t, LabelPromoterFlank, ivs[0].Label)

	require.Len(t, notices, 1)
	assert.Equal(t, NoticeAllExonsOutOfRange, notices[0].Kind)
	assert.Equal(t, []int{8, 9}, notices[0].Invalid)
}

func TestCompileAllIntronsOutOfRangeDisablesIntrons(t *testing.T) {
	cfg := GeneRegionConfig{
		IncludeIntrons:  true,
		IntronSelection: NewSelection(7),
	}
	ivs, notices := Compile(nonCoding(fiveExon(1)), cfg)

	assert.Equal(t, []string{"exon1", "exon2", "exon3", "exon4", "exon5"}, labels(ivs))

	require.Len(t, notices, 2)
	assert.Equal(t, NoticeAllIntronsOutOfRange, notices[0].Kind)
	assert.Equal(t, 4, notices[0].Total)
	assert.Equal(t, NoticeCDSMissing, notices[1].Kind)
}

func TestCompileEmptyTranscript(t *testing.T) {
	ivs, notices := Compile(&ensembl.Transcript{Chrom: "1", Strand: 1}, GeneRegionConfig{})
	assert.Nil(t, ivs)
	assert.Nil(t, notices)
}
