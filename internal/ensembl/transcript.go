// Package ensembl provides transcript retrieval against the Ensembl REST API.
package ensembl

import (
	"sort"
	"strings"
)

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID          string // Transcript ID without version (e.g. ENST00000311936)
	GeneID      string // Parent gene ID
	GeneName    string // Parent gene symbol
	Chrom       string // Chromosome (without "chr" prefix, as returned by Ensembl)
	Start       int64  // Transcript start (1-based)
	End         int64  // Transcript end (1-based, inclusive)
	Strand      int8   // +1 or -1
	Biotype     string // Transcript biotype
	IsCanonical bool   // Ensembl canonical flag
	Exons       []Exon // Exons in genomic ascending order
	CDSStart    int64  // CDS start (genomic, 1-based), 0 if non-coding
	CDSEnd      int64  // CDS end (genomic, 1-based), 0 if non-coding
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Start int64 // Genomic start (1-based)
	End   int64 // Genomic end (1-based, inclusive)
}

// IsProteinCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return t.CDSStart > 0 && t.CDSEnd > 0
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == 1
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == -1
}

// ExonCount returns the number of exons.
func (t *Transcript) ExonCount() int {
	return len(t.Exons)
}

// IntronCount returns the number of introns (exons - 1, never negative).
func (t *Transcript) IntronCount() int {
	if len(t.Exons) < 2 {
		return 0
	}
	return len(t.Exons) - 1
}

// SortExons sorts the exons into genomic ascending order.
// Required before region compilation; Ensembl returns reverse-strand
// exons in transcription order.
func (t *Transcript) SortExons() {
	sort.Slice(t.Exons, func(i, j int) bool {
		return t.Exons[i].Start < t.Exons[j].Start
	})
}

// StripVersion removes a trailing version suffix from an Ensembl or RefSeq
// identifier (ENST00000357654.9 -> ENST00000357654).
func StripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}
