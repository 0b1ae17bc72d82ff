package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauravchatnobel/gene-panel-designer/internal/liftover"
	"github.com/gauravchatnobel/gene-panel-designer/internal/mane"
)

// maneStoreFileName is the DuckDB store holding the imported summary.
const maneStoreFileName = "mane.duckdb"

func newDownloadCmd() *cobra.Command {
	var (
		outputDir  string
		skipChains bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the MANE summary and liftover chain files",
		Long: `Download fetches the reference data panelgen needs offline: the NCBI
MANE summary (imported into a DuckDB store for fast symbol lookup) and
the UCSC chain files used by liftover.

Files land under ~/.panelgen/ unless --output is given. Existing files
are kept unless --force is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			destDir := outputDir
			if destDir == "" {
				var err error
				destDir, err = dataDir()
				if err != nil {
					return err
				}
			}
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", destDir, err)
			}

			fmt.Printf("Downloading reference data to %s\n\n", destDir)

			summaryFile := filepath.Join(destDir, mane.SummaryFileName)
			if force {
				os.Remove(summaryFile)
			}
			if err := downloadFile(mane.SummaryURL, summaryFile); err != nil {
				return fmt.Errorf("download MANE summary: %w", err)
			}

			storePath := filepath.Join(destDir, maneStoreFileName)
			store, err := mane.OpenStore(storePath)
			if err != nil {
				return fmt.Errorf("open MANE store: %w", err)
			}
			n, err := store.ImportSummary(summaryFile)
			if cerr := store.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("import MANE summary: %w", err)
			}
			fmt.Printf("  Imported %d MANE transcripts into %s\n", n, filepath.Base(storePath))

			if !skipChains {
				chainDir := filepath.Join(destDir, "chains")
				store := liftover.NewChainStore(chainDir)
				store.SetLogger(logger)
				for _, pair := range []liftover.Pair{
					{From: liftover.BuildHg19, To: liftover.BuildHg38},
					{From: liftover.BuildHg38, To: liftover.BuildHs1},
				} {
					if force {
						os.Remove(filepath.Join(chainDir, pair.ChainFileName()))
					}
					fmt.Printf("  Fetching %s...\n", pair.ChainFileName())
					if _, err := store.Get(ctx, pair); err != nil {
						// Non-fatal: liftover fetches chains on demand
						fmt.Fprintf(os.Stderr, "Warning: could not fetch %s: %v\n", pair.ChainFileName(), err)
					}
				}
				store.Discard()
			}

			fmt.Printf("\nDownload complete!\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "destination directory (default ~/.panelgen)")
	cmd.Flags().BoolVar(&skipChains, "skip-chains", false, "skip liftover chain files")
	cmd.Flags().BoolVar(&force, "force", false, "re-download files that already exist")

	return cmd
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute, // Long timeout for large files
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
