// Package liftover remaps genomic intervals between assemblies using UCSC
// chain files.
package liftover

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// chainBlock is one gapless alignment block, keyed by its source interval.
// Source coordinates are 0-based half-open on the forward strand; the
// target side may be on the reverse strand, in which case tStart counts
// from the reverse-complement origin.
type chainBlock struct {
	sStart, sEnd int64
	tChrom       string
	tStart       int64
	tSize        int64
	tStrand      byte
	score        int64
}

// Chain is a parsed chain file: a piecewise coordinate correspondence from
// one assembly to another.
type Chain struct {
	// blocks per source chromosome, sorted by sStart.
	blocks map[string][]chainBlock
	// prefixMaxEnd[i] = max sEnd over blocks[0..i]; lets Map terminate a
	// backward scan early even though blocks from different chains overlap.
	prefixMaxEnd map[string][]int64
}

// MappedPos is one candidate target position for a source position.
type MappedPos struct {
	Chrom  string
	Pos    int64
	Strand byte
}

// OpenChainFile parses a chain file from disk, transparently decompressing
// .gz files.
func OpenChainFile(path string) (*Chain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open chain file %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	c, err := ParseChain(r)
	if err != nil {
		return nil, fmt.Errorf("parse chain file %s: %w", path, err)
	}
	return c, nil
}

// ParseChain parses UCSC chain format:
//
//	chain score tName tSize tStrand tStart tEnd qName qSize qStrand qStart qEnd [id]
//	size dt dq
//	...
//	size
//
// The "t" side is the source assembly, "q" the target.
func ParseChain(r io.Reader) (*Chain, error) {
	c := &Chain{
		blocks:       make(map[string][]chainBlock),
		prefixMaxEnd: make(map[string][]int64),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		inChain bool
		score   int64
		sChrom  string
		sPos    int64
		tChrom  string
		tPos    int64
		tSize   int64
		tStrand byte
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			inChain = false
			continue
		}

		fields := strings.Fields(line)

		if fields[0] == "chain" {
			if len(fields) < 12 {
				return nil, fmt.Errorf("line %d: malformed chain header", lineNo)
			}
			vals := make([]int64, 0, 8)
			for _, idx := range []int{1, 3, 5, 6, 8, 10, 11} {
				v, err := strconv.ParseInt(fields[idx], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad chain header field %q", lineNo, fields[idx])
				}
				vals = append(vals, v)
			}
			if fields[4] != "+" {
				return nil, fmt.Errorf("line %d: source strand must be +", lineNo)
			}

			score = vals[0]
			sChrom = fields[2]
			sPos = vals[2]
			tChrom = fields[7]
			tSize = vals[4]
			tStrand = fields[9][0]
			tPos = vals[5]
			inChain = true
			continue
		}

		if !inChain {
			return nil, fmt.Errorf("line %d: alignment data outside a chain", lineNo)
		}

		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad block size %q", lineNo, fields[0])
		}

		if size > 0 {
			c.blocks[sChrom] = append(c.blocks[sChrom], chainBlock{
				sStart:  sPos,
				sEnd:    sPos + size,
				tChrom:  tChrom,
				tStart:  tPos,
				tSize:   tSize,
				tStrand: tStrand,
				score:   score,
			})
		}

		if len(fields) >= 3 {
			dt, err1 := strconv.ParseInt(fields[1], 10, 64)
			dq, err2 := strconv.ParseInt(fields[2], 10, 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad gap sizes", lineNo)
			}
			sPos += size + dt
			tPos += size + dq
		} else {
			// terminal block line
			inChain = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chain data: %w", err)
	}

	for chrom := range c.blocks {
		blocks := c.blocks[chrom]
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].sStart < blocks[j].sStart })

		prefix := make([]int64, len(blocks))
		var maxEnd int64
		for i, b := range blocks {
			if b.sEnd > maxEnd {
				maxEnd = b.sEnd
			}
			prefix[i] = maxEnd
		}
		c.prefixMaxEnd[chrom] = prefix
	}

	return c, nil
}

// Map converts a single 0-based position. It returns every candidate target
// position, best chain score first, or nil if the position falls in no
// alignment block.
func (c *Chain) Map(chrom string, pos int64) []MappedPos {
	blocks := c.blocks[chrom]
	if len(blocks) == 0 {
		return nil
	}
	prefix := c.prefixMaxEnd[chrom]

	// First block starting past pos; everything containing pos is before it.
	idx := sort.Search(len(blocks), func(i int) bool { return blocks[i].sStart > pos })

	type scored struct {
		m     MappedPos
		score int64
	}
	var hits []scored

	for i := idx - 1; i >= 0; i-- {
		if prefix[i] <= pos {
			break
		}
		b := blocks[i]
		if pos < b.sStart || pos >= b.sEnd {
			continue
		}

		offset := pos - b.sStart
		target := b.tStart + offset
		if b.tStrand == '-' {
			target = b.tSize - 1 - target
		}
		hits = append(hits, scored{
			m:     MappedPos{Chrom: b.tChrom, Pos: target, Strand: b.tStrand},
			score: b.score,
		})
	}

	if hits == nil {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]MappedPos, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out
}
