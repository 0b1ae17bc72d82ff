package panel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauravchatnobel/gene-panel-designer/internal/bed"
	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
	"github.com/gauravchatnobel/gene-panel-designer/internal/mane"
)

// fakeResolver returns canned resolutions keyed by requested transcript ID.
type fakeResolver struct {
	resolutions map[string]*ensembl.Resolution
}

func (f *fakeResolver) Resolve(ctx context.Context, requestedID, geneSymbol string) (*ensembl.Resolution, error) {
	requested := ensembl.StripVersion(requestedID)
	if res, ok := f.resolutions[requested]; ok {
		return res, nil
	}
	return nil, &ensembl.TranscriptNotFoundError{Gene: geneSymbol, TranscriptID: requested}
}

func resolution(id string, strand int8) *ensembl.Resolution {
	return &ensembl.Resolution{
		Transcript: &ensembl.Transcript{
			ID:     id,
			Chrom:  "1",
			Strand: strand,
			Exons: []ensembl.Exon{
				{Start: 100, End: 200},
				{Start: 300, End: 400},
			},
			CDSStart: 100,
			CDSEnd:   400,
		},
		RequestedID: id,
		UsedID:      id,
		HasCDS:      true,
	}
}

func testGene(symbol, transcriptID, refseq string) Gene {
	return Gene{
		Mapping: mane.Mapping{
			Input:        symbol,
			Symbol:       symbol,
			TranscriptID: transcriptID,
			RefSeqID:     refseq,
			Status:       mane.StatusSelect,
		},
	}
}

func runPipeline(t *testing.T, r *Runner, genes []Gene) (*Diagnostics, []string) {
	t.Helper()
	var buf bytes.Buffer
	diags, err := r.Run(context.Background(), genes, bed.NewWriter(&buf))
	require.NoError(t, err)

	out := strings.TrimSuffix(buf.String(), "\n")
	if out == "" {
		return diags, nil
	}
	return diags, strings.Split(out, "\n")
}

func TestRunWritesInInputOrder(t *testing.T) {
	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": resolution("ENST00000000001", 1),
		"ENST00000000002": resolution("ENST00000000002", 1),
		"ENST00000000003": resolution("ENST00000000003", 1),
	}}
	r := NewRunner(resolver, Options{Workers: 3})

	genes := []Gene{
		testGene("AAA", "ENST00000000001", "NM_1"),
		testGene("BBB", "ENST00000000002", "NM_2"),
		testGene("CCC", "ENST00000000003", "NM_3"),
	}

	diags, lines := runPipeline(t, r, genes)
	assert.Equal(t, 6, diags.Regions)
	require.Len(t, lines, 6)

	// Two intervals per gene, genes in input order regardless of which
	// worker finished first.
	assert.Contains(t, lines[0], "AAA_")
	assert.Contains(t, lines[1], "AAA_")
	assert.Contains(t, lines[2], "BBB_")
	assert.Contains(t, lines[4], "CCC_")
}

func TestRunBedColumns(t *testing.T) {
	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": resolution("ENST00000000001", 1),
	}}
	r := NewRunner(resolver, Options{Padding: 10})

	_, lines := runPipeline(t, r, []Gene{testGene("AAA", "ENST00000000001", "NM_1")})
	require.Len(t, lines, 2)
	assert.Equal(t, "chr1\t89\t210\tAAA_ENST00000000001_exon1_CDS\t.\t+\tAAA\t1", lines[0])
	assert.Equal(t, "chr1\t289\t410\tAAA_ENST00000000001_exon2_CDS\t.\t+\tAAA\t2", lines[1])
}

func TestRunFailedGeneDoesNotAbortBatch(t *testing.T) {
	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": resolution("ENST00000000001", 1),
	}}
	r := NewRunner(resolver, Options{})

	genes := []Gene{
		testGene("GONE", "ENST00000009999", "NM_9"),
		testGene("AAA", "ENST00000000001", "NM_1"),
	}

	diags, lines := runPipeline(t, r, genes)
	require.Len(t, diags.Failed, 1)
	assert.Equal(t, "GONE", diags.Failed[0].Gene)
	assert.Contains(t, diags.Failed[0].Reason, "no usable transcript")

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "AAA_")
}

func TestRunRecordsSwitchAndMissingCDS(t *testing.T) {
	switched := resolution("ENST00000000002", 1)
	switched.RequestedID = "ENST00000000001"
	switched.Switched = true

	noCDS := resolution("ENST00000000003", 1)
	noCDS.HasCDS = false
	noCDS.Transcript.CDSStart, noCDS.Transcript.CDSEnd = 0, 0

	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": switched,
		"ENST00000000003": noCDS,
	}}
	r := NewRunner(resolver, Options{})

	genes := []Gene{
		testGene("SWI", "ENST00000000001", "NM_1"),
		testGene("NOC", "ENST00000000003", "NM_3"),
	}

	diags, _ := runPipeline(t, r, genes)
	require.Len(t, diags.Switches, 1)
	assert.Equal(t, TranscriptSwitch{
		Gene:      "SWI",
		Requested: "ENST00000000001",
		Used:      "ENST00000000002",
	}, diags.Switches[0])
	assert.Equal(t, []string{"NOC"}, diags.MissingCDS)
}

func TestRunRefSeqLabels(t *testing.T) {
	switched := resolution("ENST00000000002", 1)
	switched.RequestedID = "ENST00000000001"
	switched.Switched = true

	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": switched,
		"ENST00000000003": resolution("ENST00000000003", 1),
		"ENST00000000004": resolution("ENST00000000004", 1),
	}}
	r := NewRunner(resolver, Options{RefSeqLabels: true})

	genes := []Gene{
		testGene("SWI", "ENST00000000001", "NM_1"),
		testGene("NOR", "ENST00000000003", "-"),
		testGene("AAA", "ENST00000000004", "NM_4.2"),
	}

	diags, lines := runPipeline(t, r, genes)

	// Switched or RefSeq-less genes fall back to their Ensembl ID.
	require.Len(t, diags.RefSeqFallbacks, 2)
	assert.Equal(t, "SWI", diags.RefSeqFallbacks[0].Gene)
	assert.Equal(t, "transcript switched", diags.RefSeqFallbacks[0].Reason)
	assert.Equal(t, "NOR", diags.RefSeqFallbacks[1].Gene)
	assert.Equal(t, "no RefSeq ID available", diags.RefSeqFallbacks[1].Reason)

	assert.Contains(t, lines[0], "SWI_ENST00000000002_")
	assert.Contains(t, lines[2], "NOR_ENST00000000003_")
	assert.Contains(t, lines[4], "AAA_NM_4.2_")
}

func TestRunRejectsBadFilterPerGene(t *testing.T) {
	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": resolution("ENST00000000001", 1),
	}}
	r := NewRunner(resolver, Options{})

	bad := testGene("BAD", "ENST00000000001", "NM_1")
	bad.Config.ExonFilter = "3-1"
	good := testGene("AAA", "ENST00000000001", "NM_1")

	diags, lines := runPipeline(t, r, []Gene{bad, good})
	require.Len(t, diags.Failed, 1)
	assert.Equal(t, "BAD", diags.Failed[0].Gene)
	assert.Contains(t, diags.Failed[0].Reason, "exon filter")
	require.Len(t, lines, 2)
}

func TestRunRecordsFilterIssues(t *testing.T) {
	resolver := &fakeResolver{resolutions: map[string]*ensembl.Resolution{
		"ENST00000000001": resolution("ENST00000000001", 1),
	}}
	r := NewRunner(resolver, Options{})

	g := testGene("AAA", "ENST00000000001", "NM_1")
	g.Config.ExonFilter = "1,9"

	diags, lines := runPipeline(t, r, []Gene{g})
	require.Len(t, diags.FilterIssues, 1)
	issue := diags.FilterIssues[0]
	assert.Equal(t, "AAA", issue.Gene)
	assert.Equal(t, "exon", issue.Class)
	assert.Equal(t, []int{9}, issue.Invalid)
	assert.Equal(t, 2, issue.Total)
	assert.False(t, issue.All)

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "exon1_CDS")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(&fakeResolver{}, Options{})
	var buf bytes.Buffer
	_, err := r.Run(ctx, []Gene{testGene("AAA", "ENST00000000001", "NM_1")}, bed.NewWriter(&buf))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderedCollect(t *testing.T) {
	results := make(chan workResult, 4)
	results <- workResult{seq: 2}
	results <- workResult{seq: 0}
	results <- workResult{seq: 3}
	results <- workResult{seq: 1}
	close(results)

	var order []int
	err := orderedCollect(results, func(r workResult) error {
		order = append(order, r.seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}
