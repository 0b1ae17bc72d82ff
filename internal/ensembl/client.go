package ensembl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Assembly identifies a supported genome assembly. Each assembly is served
// by its own Ensembl REST endpoint.
type Assembly string

const (
	GRCh38 Assembly = "GRCh38"
	GRCh37 Assembly = "GRCh37"
)

// ParseAssembly normalizes a user-supplied assembly name.
// Accepts Ensembl (GRCh37/GRCh38) and UCSC (hg19/hg38) spellings.
func ParseAssembly(name string) (Assembly, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "grch38", "hg38":
		return GRCh38, nil
	case "grch37", "hg19":
		return GRCh37, nil
	default:
		return "", fmt.Errorf("unsupported assembly %q (use hg19/GRCh37 or hg38/GRCh38)", name)
	}
}

// UCSCName returns the UCSC-style assembly name (hg19/hg38).
func (a Assembly) UCSCName() string {
	if a == GRCh37 {
		return "hg19"
	}
	return "hg38"
}

// ErrNotFound is returned when the annotation service has no record for an
// identifier or symbol. Not-found responses are terminal and never retried.
var ErrNotFound = errors.New("ensembl: not found")

const (
	defaultTimeout    = 15 * time.Second
	defaultAttempts   = 3
	defaultBackoff    = time.Second
	symbolBatchSize   = 200 // Ensembl POST lookup/symbol limit
	sequenceBatchSize = 50  // Ensembl POST sequence/id limit
	batchDelay        = 100 * time.Millisecond
)

// Client is an annotation client for one assembly-scoped Ensembl REST endpoint.
type Client struct {
	baseURL    string
	assembly   Assembly
	httpClient *http.Client
	logger     *zap.Logger

	attempts   int
	backoff    time.Duration
	chunkDelay time.Duration
}

// NewClient creates a client for the given assembly.
func NewClient(assembly Assembly) *Client {
	baseURL := "https://rest.ensembl.org"
	if assembly == GRCh37 {
		baseURL = "https://grch37.rest.ensembl.org"
	}

	return &Client{
		baseURL:    baseURL,
		assembly:   assembly,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		chunkDelay: batchDelay,
	}
}

// Assembly returns the assembly this client is scoped to.
func (c *Client) Assembly() Assembly {
	return c.assembly
}

// SetLogger sets the logger for warning and debug messages.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetBaseURL overrides the endpoint URL. Used in tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// SetBackoff overrides the retry backoff unit. Used in tests.
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// Ping checks the service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Ping int `json:"ping"`
	}
	return c.getJSON(ctx, "/info/ping", &resp)
}

// lookupRecord is the shape of /lookup responses for both transcripts and genes.
type lookupRecord struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	ObjectType    string `json:"object_type"`
	Parent        string `json:"Parent"`
	SeqRegionName string `json:"seq_region_name"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	Strand        int    `json:"strand"`
	Biotype       string `json:"biotype"`
	IsCanonical   int    `json:"is_canonical"`
	Translation   *struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"Translation"`
	Exon []struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"Exon"`
	Transcript []lookupRecord `json:"Transcript"`
}

// LookupTranscript fetches a transcript record by ID, expanded with its
// exons and translation. The version suffix is stripped before lookup.
func (c *Client) LookupTranscript(ctx context.Context, id string) (*Transcript, error) {
	clean := StripVersion(id)

	var rec lookupRecord
	path := fmt.Sprintf("/lookup/id/%s?expand=1;content-type=application/json", clean)
	if err := c.getJSON(ctx, path, &rec); err != nil {
		return nil, err
	}

	t := rec.toTranscript()
	if t == nil {
		return nil, fmt.Errorf("lookup %s: %w", clean, ErrNotFound)
	}
	return t, nil
}

func (r *lookupRecord) toTranscript() *Transcript {
	if r.ID == "" {
		return nil
	}

	t := &Transcript{
		ID:          StripVersion(r.ID),
		GeneID:      r.Parent,
		GeneName:    r.DisplayName,
		Chrom:       r.SeqRegionName,
		Start:       r.Start,
		End:         r.End,
		Strand:      int8(r.Strand),
		Biotype:     r.Biotype,
		IsCanonical: r.IsCanonical == 1,
	}

	for _, e := range r.Exon {
		t.Exons = append(t.Exons, Exon{Start: e.Start, End: e.End})
	}
	t.SortExons()

	if r.Translation != nil {
		t.CDSStart = r.Translation.Start
		t.CDSEnd = r.Translation.End
	}

	return t
}

// Gene is a gene record with its child transcripts.
type Gene struct {
	ID          string
	Symbol      string
	Chrom       string
	Transcripts []GeneTranscript
}

// GeneTranscript summarizes one transcript under a gene record.
type GeneTranscript struct {
	ID          string
	Start       int64
	End         int64
	IsCanonical bool
}

func (r *lookupRecord) toGene() *Gene {
	if r.ID == "" {
		return nil
	}
	g := &Gene{
		ID:     r.ID,
		Symbol: r.DisplayName,
		Chrom:  r.SeqRegionName,
	}
	for _, t := range r.Transcript {
		g.Transcripts = append(g.Transcripts, GeneTranscript{
			ID:          StripVersion(t.ID),
			Start:       t.Start,
			End:         t.End,
			IsCanonical: t.IsCanonical == 1,
		})
	}
	return g
}

// LookupSymbol fetches a gene record by symbol, expanded with its transcripts.
func (c *Client) LookupSymbol(ctx context.Context, symbol string) (*Gene, error) {
	var rec lookupRecord
	path := fmt.Sprintf("/lookup/symbol/homo_sapiens/%s?expand=1;content-type=application/json", symbol)
	if err := c.getJSON(ctx, path, &rec); err != nil {
		return nil, err
	}

	g := rec.toGene()
	if g == nil {
		return nil, fmt.Errorf("lookup symbol %s: %w", symbol, ErrNotFound)
	}
	return g, nil
}

// LookupGene fetches a gene record by stable ID, expanded with its transcripts.
func (c *Client) LookupGene(ctx context.Context, geneID string) (*Gene, error) {
	var rec lookupRecord
	path := fmt.Sprintf("/lookup/id/%s?expand=1;content-type=application/json", geneID)
	if err := c.getJSON(ctx, path, &rec); err != nil {
		return nil, err
	}

	g := rec.toGene()
	if g == nil {
		return nil, fmt.Errorf("lookup gene %s: %w", geneID, ErrNotFound)
	}
	return g, nil
}

// BulkLookupSymbols fetches gene records for many symbols at once.
// Symbols absent from the annotation are missing from the returned map.
// Requests are chunked to the service's batch limit with a fixed delay
// between chunks.
func (c *Client) BulkLookupSymbols(ctx context.Context, symbols []string) (map[string]*Gene, error) {
	out := make(map[string]*Gene, len(symbols))

	for start := 0; start < len(symbols); start += symbolBatchSize {
		end := min(start+symbolBatchSize, len(symbols))
		chunk := symbols[start:end]

		payload := map[string]any{"symbols": chunk, "expand": 1}
		var resp map[string]lookupRecord
		if err := c.postJSON(ctx, "/lookup/symbol/homo_sapiens", payload, &resp); err != nil {
			return nil, fmt.Errorf("bulk symbol lookup: %w", err)
		}

		for symbol, rec := range resp {
			if g := rec.toGene(); g != nil {
				out[symbol] = g
			}
		}

		if end < len(symbols) {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// XrefSymbol resolves a symbol through cross-references and returns
// candidate gene IDs. Used for aliases and retired symbols.
func (c *Client) XrefSymbol(ctx context.Context, symbol string) ([]string, error) {
	var resp []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	path := fmt.Sprintf("/xrefs/symbol/homo_sapiens/%s?object_type=gene;content-type=application/json", symbol)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp))
	for _, x := range resp {
		if x.ID != "" {
			ids = append(ids, x.ID)
		}
	}
	return ids, nil
}

// FetchSequences fetches sequences for a batch of IDs. kind is an Ensembl
// sequence type tag ("cdna", "cds", "protein"). Requests are chunked to the
// service's batch limit with a fixed delay between chunks; IDs the service
// did not return are missing from the map. Keys are the caller's original
// (possibly versioned) IDs.
func (c *Client) FetchSequences(ctx context.Context, ids []string, kind string) (map[string]string, error) {
	out := make(map[string]string, len(ids))

	for start := 0; start < len(ids); start += sequenceBatchSize {
		end := min(start+sequenceBatchSize, len(ids))
		chunk := ids[start:end]

		clean := make([]string, len(chunk))
		for i, id := range chunk {
			clean[i] = StripVersion(id)
		}

		payload := map[string]any{"ids": clean, "type": kind}
		var resp []struct {
			ID  string `json:"id"`
			Seq string `json:"seq"`
		}
		if err := c.postJSON(ctx, "/sequence/id", payload, &resp); err != nil {
			return nil, fmt.Errorf("batch sequence fetch: %w", err)
		}

		seqs := make(map[string]string, len(resp))
		for _, r := range resp {
			seqs[r.ID] = r.Seq
		}
		for i, id := range chunk {
			if seq, ok := seqs[clean[i]]; ok {
				out[id] = seq
			}
		}

		if end < len(ids) {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// pause sleeps for the inter-chunk delay, honoring cancellation.
func (c *Client) pause(ctx context.Context) error {
	timer := time.NewTimer(c.chunkDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// doJSON performs one request with bounded retry. Rate-limit (429) and
// server (5xx) responses are transient and retried with increasing backoff;
// 400/404 are terminal and map to ErrNotFound.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(attempt)
			c.logger.Debug("retrying ensembl request",
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("ensembl request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode ensembl response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			resp.Body.Close()
			lastErr = fmt.Errorf("ensembl %s: HTTP %d: %s", path, resp.StatusCode, string(msg))

		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("ensembl %s: HTTP %d: %w", path, resp.StatusCode, ErrNotFound)

		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			resp.Body.Close()
			return fmt.Errorf("ensembl %s: HTTP %d: %s", path, resp.StatusCode, string(msg))
		}
	}

	return fmt.Errorf("retry budget exhausted: %w", lastErr)
}
