// Package bed writes panel regions as extended interval-list lines.
package bed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/gauravchatnobel/gene-panel-designer/internal/regions"
)

// Writer writes extended BED lines:
//
//	chrom  start  end  {gene}_{transcript}_{region}  .  strand  gene  exon/intron-number
//
// The score column is a placeholder and the number column is "." for
// flank regions.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteInterval writes one region interval for a gene.
// transcriptLabel is the identifier used in the name column (Ensembl or
// RefSeq); strand is +1 or -1.
func (w *Writer) WriteInterval(gene, transcriptLabel string, strand int8, iv regions.Interval) error {
	strandSym := "+"
	if strand == -1 {
		strandSym = "-"
	}

	number := "."
	if iv.Number > 0 {
		number = strconv.Itoa(iv.Number)
	}

	name := fmt.Sprintf("%s_%s_%s", gene, transcriptLabel, iv.Label)
	_, err := fmt.Fprintf(w.w, "%s\t%d\t%d\t%s\t.\t%s\t%s\t%s\n",
		iv.Chrom, iv.Start, iv.End, name, strandSym, gene, number)
	return err
}

// Flush flushes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
