package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gauravchatnobel/gene-panel-designer/internal/liftover"
)

func newLiftoverCmd() *cobra.Command {
	var (
		from         string
		to           string
		outPath      string
		unmappedPath string
	)

	cmd := &cobra.Command{
		Use:   "liftover [bed-file]",
		Short: "Remap a BED file between genome assemblies",
		Long: `Liftover remaps BED intervals between hg19, hg38 and hs1 (T2T-CHM13)
using UCSC chain files, downloading them on first use. hg19 to hs1 runs
through hg38 in two hops.

Records whose endpoints land on different chromosomes or strands, or that
cannot be mapped at all, are written to the unmapped file with a comment
naming the reason. Header, track and browser lines pass through unchanged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in := io.Reader(os.Stdin)
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open BED file: %w", err)
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read BED input: %w", err)
			}

			dir, err := dataDir()
			if err != nil {
				return err
			}
			store := liftover.NewChainStore(filepath.Join(dir, "chains"))
			store.SetLogger(logger)

			engine := liftover.NewEngine(store)
			engine.SetLogger(logger)

			converted, unmapped, err := engine.ConvertBedText(ctx, string(data), from, to)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if converted != "" {
				fmt.Fprintln(out, converted)
			}

			if unmapped != "" {
				if unmappedPath == "" {
					fmt.Fprintln(os.Stderr, unmapped)
				} else {
					if err := os.WriteFile(unmappedPath, []byte(unmapped+"\n"), 0o644); err != nil {
						return fmt.Errorf("write unmapped file: %w", err)
					}
				}
				fmt.Fprintf(os.Stderr, "Warning: %d records did not map cleanly\n", countUnmapped(unmapped))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "hg19", "source assembly (hg19, hg38 or hs1)")
	cmd.Flags().StringVar(&to, "to", "hg38", "target assembly (hg19, hg38 or hs1)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output BED file (default stdout)")
	cmd.Flags().StringVar(&unmappedPath, "unmapped", "", "file for records that fail to map (default stderr)")

	return cmd
}

// countUnmapped counts records in the unmapped text. Each record carries
// its reason appended on the same line, so every non-comment line is one
// record.
func countUnmapped(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			n++
		}
	}
	return n
}
