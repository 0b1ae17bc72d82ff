package liftover

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Unmapped-reason annotations appended to lines in the unmapped output.
const (
	reasonInvalidFormat = "# Invalid Format"
	reasonInvalidCoords = "# Invalid Coordinates"
	reasonMappingFailed = "# Mapping Failed"
	reasonSplitMapping  = "# Split Mapping"
)

// ConvertBedText remaps interval-list text line by line and returns the
// converted text plus the unmapped lines (each annotated with a reason).
// Comment and header-like lines (#, track, browser) and blank lines pass
// through unchanged into the converted output. Data lines are tokenized
// tolerantly: tab-delimited first, then comma-delimited with quotes
// stripped, then generic whitespace. Columns beyond chrom/start/end are
// carried through verbatim on success.
//
// An unsupported assembly pair is returned as an error; per-line failures
// are collected into the unmapped text instead.
func (e *Engine) ConvertBedText(ctx context.Context, text, from, to string) (converted, unmapped string, err error) {
	nf, err := NormalizeBuild(from)
	if err != nil {
		return "", "", err
	}
	nt, err := NormalizeBuild(to)
	if err != nil {
		return "", "", err
	}
	if nf != nt {
		if _, err := routeFor(nf, nt); err != nil {
			return "", "", err
		}
	}

	var convertedLines, unmappedLines []string
	nConverted, nUnmapped := 0, 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimPrefix(line, "\ufeff")
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			convertedLines = append(convertedLines, line)
			continue
		}

		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		fields := splitBedLine(line)
		if len(fields) < 3 {
			unmappedLines = append(unmappedLines, line+"\t"+reasonInvalidFormat)
			nUnmapped++
			continue
		}

		chrom := NormalizeChrom(fields[0])
		start, err1 := strconv.ParseInt(fields[1], 10, 64)
		end, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			unmappedLines = append(unmappedLines, line+"\t"+reasonInvalidCoords)
			nUnmapped++
			continue
		}

		region, convErr := e.ConvertRegion(ctx, chrom, start, end, nf, nt)
		if convErr != nil {
			switch {
			case errors.Is(convErr, ErrSplitMapping):
				unmappedLines = append(unmappedLines, line+"\t"+reasonSplitMapping)
			case errors.Is(convErr, ErrUnmapped):
				unmappedLines = append(unmappedLines, line+"\t"+reasonMappingFailed)
			default:
				// chain load or cancellation: abort the whole conversion
				return "", "", convErr
			}
			nUnmapped++
			continue
		}

		out := fmt.Sprintf("%s\t%d\t%d", region.Chrom, region.Start, region.End)
		if len(fields) > 3 {
			out += "\t" + strings.Join(fields[3:], "\t")
		}
		convertedLines = append(convertedLines, out)
		nConverted++
	}

	e.logger.Info("bed conversion finished",
		zap.String("from", nf),
		zap.String("to", nt),
		zap.Int("converted", nConverted),
		zap.Int("unmapped", nUnmapped))

	return strings.Join(convertedLines, "\n"), strings.Join(unmappedLines, "\n"), nil
}

// splitBedLine tokenizes a data line: tabs, then commas (stripping quote
// characters), then any whitespace.
func splitBedLine(line string) []string {
	trimmed := strings.TrimSpace(line)

	fields := strings.Split(trimmed, "\t")
	if len(fields) >= 3 {
		return fields
	}

	fields = strings.Split(trimmed, ",")
	if len(fields) >= 3 {
		for i, f := range fields {
			fields[i] = strings.Trim(strings.TrimSpace(f), `"`)
		}
		return fields
	}

	return strings.Fields(trimmed)
}
