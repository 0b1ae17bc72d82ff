package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gauravchatnobel/gene-panel-designer/internal/bed"
	"github.com/gauravchatnobel/gene-panel-designer/internal/ensembl"
	"github.com/gauravchatnobel/gene-panel-designer/internal/mane"
	"github.com/gauravchatnobel/gene-panel-designer/internal/panel"
)

func newDesignCmd() *cobra.Command {
	var (
		assemblyName  string
		outPath       string
		overridesPath string
		summaryPath   string
		utr5          bool
		utr3          bool
		introns       bool
		exonFilter    string
		intronFilter  string
		flank5        int64
		flank3        int64
		padding       int64
		workers       int
		idFormat      string
	)

	cmd := &cobra.Command{
		Use:   "design [gene-list]",
		Short: "Generate a BED file of padded target regions for a gene panel",
		Long: `Design resolves each gene symbol to its MANE Select transcript (falling
back to MANE Plus Clinical, then the assembly's canonical transcript),
compiles strand-aware exon, intron, UTR and flank intervals, and writes
them as 0-based half-open BED records.

The gene list is a text file with one symbol per line; "-" reads from
standard input. Lines may carry extra comma- or tab-separated columns,
which are ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			assembly, err := ensembl.ParseAssembly(viper.GetString("assembly"))
			if err != nil {
				return err
			}

			var refseqLabels bool
			switch idFormat {
			case "ensembl":
			case "refseq":
				refseqLabels = true
			default:
				return fmt.Errorf("invalid --id-format %q (use ensembl or refseq)", idFormat)
			}

			in := os.Stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open gene list: %w", err)
				}
				defer f.Close()
				in = f
			}
			symbols, err := panel.ParseGeneList(in)
			if err != nil {
				return fmt.Errorf("parse gene list: %w", err)
			}
			if len(symbols) == 0 {
				return fmt.Errorf("gene list is empty")
			}

			source, closeSource, err := openSummarySource(summaryPath)
			if err != nil {
				return err
			}
			defer closeSource()

			client := ensembl.NewClient(assembly)
			client.SetLogger(logger)
			if err := client.Ping(ctx); err != nil {
				return fmt.Errorf("annotation service unreachable: %w", err)
			}

			mapper := mane.NewMapper(source, client, assembly)
			mapper.SetLogger(logger)
			mappings, missing, err := mapper.MapSymbols(ctx, symbols)
			if err != nil {
				return fmt.Errorf("map gene symbols: %w", err)
			}

			defaults := panel.GeneConfig{
				Include5UTR:    utr5,
				Include3UTR:    utr3,
				IncludeIntrons: introns,
				ExonFilter:     exonFilter,
				IntronFilter:   intronFilter,
				Flank5:         flank5,
				Flank3:         flank3,
			}
			overrides := panel.Overrides{}
			if overridesPath != "" {
				overrides, err = panel.LoadOverrides(overridesPath)
				if err != nil {
					return err
				}
			}

			genes := make([]panel.Gene, 0, len(mappings))
			for _, m := range mappings {
				genes = append(genes, panel.Gene{
					Mapping: m,
					Config:  overrides.Apply(m.Symbol, defaults),
				})
			}

			resolver := ensembl.NewResolver(client, assembly)
			resolver.SetLogger(logger)

			runner := panel.NewRunner(resolver, panel.Options{
				Padding:      viper.GetInt64("padding"),
				RefSeqLabels: refseqLabels,
				Workers:      viper.GetInt("workers"),
			})
			runner.SetLogger(logger)

			out := os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			bw := bed.NewWriter(out)

			diags, err := runner.Run(ctx, genes, bw)
			if err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return fmt.Errorf("flush output: %w", err)
			}

			printReport(os.Stderr, len(symbols), mappings, missing, diags)
			return nil
		},
	}

	cmd.Flags().StringVarP(&assemblyName, "assembly", "a", "GRCh38", "reference assembly (GRCh38 or GRCh37)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output BED file (default stdout)")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "YAML file with per-gene region overrides")
	cmd.Flags().StringVar(&summaryPath, "mane-summary", "", "MANE summary file to use instead of the downloaded store")
	cmd.Flags().BoolVar(&utr5, "utr5", true, "include 5' UTR segments")
	cmd.Flags().BoolVar(&utr3, "utr3", false, "include 3' UTR segments")
	cmd.Flags().BoolVar(&introns, "introns", false, "include intron regions")
	cmd.Flags().StringVar(&exonFilter, "exons", "", "exon filter, e.g. \"1,3,5-7\" (default all)")
	cmd.Flags().StringVar(&intronFilter, "intron-filter", "", "intron filter, e.g. \"1-2\" (default all)")
	cmd.Flags().Int64Var(&flank5, "flank5", 0, "promoter flank upstream of the transcript start, in bp")
	cmd.Flags().Int64Var(&flank3, "flank3", 0, "downstream flank past the transcript end, in bp")
	cmd.Flags().Int64Var(&padding, "padding", 20, "symmetric padding added to every interval, in bp")
	cmd.Flags().IntVar(&workers, "workers", 4, "number of genes compiled in parallel")
	cmd.Flags().StringVar(&idFormat, "id-format", "ensembl", "transcript ID used in region names (ensembl or refseq)")

	viper.BindPFlag("assembly", cmd.Flags().Lookup("assembly"))
	viper.BindPFlag("padding", cmd.Flags().Lookup("padding"))
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

// openSummarySource picks the MANE lookup backend: an explicit summary
// file when given, otherwise the downloaded DuckDB store, otherwise the
// downloaded summary file.
func openSummarySource(summaryPath string) (mane.SummarySource, func() error, error) {
	noop := func() error { return nil }

	if summaryPath != "" {
		records, err := mane.OpenSummaryFile(summaryPath)
		if err != nil {
			return nil, nil, err
		}
		return mane.NewMemorySource(records), noop, nil
	}

	dir, err := dataDir()
	if err != nil {
		return nil, nil, err
	}

	dbPath := filepath.Join(dir, maneStoreFileName)
	if _, err := os.Stat(dbPath); err == nil {
		store, err := mane.OpenStore(dbPath)
		if err != nil {
			return nil, nil, err
		}
		if store.Loaded() {
			return store, store.Close, nil
		}
		store.Close()
	}

	filePath := filepath.Join(dir, mane.SummaryFileName)
	if _, err := os.Stat(filePath); err == nil {
		records, err := mane.OpenSummaryFile(filePath)
		if err != nil {
			return nil, nil, err
		}
		return mane.NewMemorySource(records), noop, nil
	}

	return nil, nil, fmt.Errorf("no MANE summary found in %s; run \"panelgen download\" first", dir)
}

func printReport(w io.Writer, requested int, mappings []mane.Mapping, missing []string, d *panel.Diagnostics) {
	fmt.Fprintf(w, "Wrote %d regions for %d of %d genes\n", d.Regions, len(mappings)-len(d.Failed), requested)

	byStatus := map[string]int{}
	for _, m := range mappings {
		byStatus[m.Status]++
	}
	for _, status := range []string{mane.StatusSelect, mane.StatusPlusClinical, mane.StatusCanonical} {
		if n := byStatus[status]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", status, n)
		}
	}

	for _, m := range mappings {
		if m.AliasResolved() {
			fmt.Fprintf(w, "Note: %s was resolved via alias %s\n", m.Input, m.Symbol)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "Unresolved symbols: %s\n", strings.Join(missing, ", "))
	}
	for _, s := range d.Switches {
		fmt.Fprintf(w, "Note: %s used %s instead of requested %s\n", s.Gene, s.Used, s.Requested)
	}
	for _, g := range d.MissingCDS {
		fmt.Fprintf(w, "Note: %s has no annotated CDS; exons emitted without UTR split\n", g)
	}
	for _, fi := range d.FilterIssues {
		if fi.All {
			fmt.Fprintf(w, "Warning: %s: no requested %s numbers exist (transcript has %d); %ss skipped\n",
				fi.Gene, fi.Class, fi.Total, fi.Class)
			continue
		}
		fmt.Fprintf(w, "Warning: %s: %s numbers %v out of range (transcript has %d)\n",
			fi.Gene, fi.Class, fi.Invalid, fi.Total)
	}
	for _, ri := range d.RefSeqFallbacks {
		fmt.Fprintf(w, "Note: %s labeled with Ensembl ID (%s)\n", ri.Gene, ri.Reason)
	}
	for _, f := range d.Failed {
		fmt.Fprintf(w, "Failed: %s: %s\n", f.Gene, f.Reason)
	}
}
