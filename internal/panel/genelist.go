// Package panel runs the per-gene design pipeline: symbol mapping,
// transcript resolution, region compilation and BED output.
package panel

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// parenAlias matches parenthesized aliases appended to a symbol,
// e.g. "CD274 (PD-L1)".
var parenAlias = regexp.MustCompile(`\(.*?\)`)

// ParseGeneList reads gene symbols from plain text, one per line. Only the
// first comma- or tab-separated field of each line is used; parenthesized
// aliases are stripped; blank lines are skipped. Duplicates are preserved
// (the mapper dedupes).
func ParseGeneList(r io.Reader) ([]string, error) {
	var genes []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\ufeff")

		if i := strings.IndexAny(line, ",\t"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(parenAlias.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		genes = append(genes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene list: %w", err)
	}

	return genes, nil
}
