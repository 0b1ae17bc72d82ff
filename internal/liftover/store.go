package liftover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ucscDownloadBase is where chain files are fetched from when not present
// in the local data directory.
const ucscDownloadBase = "https://hgdownload.soe.ucsc.edu/goldenPath"

// Pair identifies a source/target assembly pair using normalized UCSC-style
// build names (hg19, hg38, hs1).
type Pair struct {
	From, To string
}

// ChainFileName returns the conventional UCSC chain file name for the pair,
// e.g. hg19ToHg38.over.chain.gz.
func (p Pair) ChainFileName() string {
	return fmt.Sprintf("%sTo%s.over.chain.gz", p.From, strings.ToUpper(p.To[:1])+p.To[1:])
}

func (p Pair) downloadURL() string {
	return fmt.Sprintf("%s/%s/liftOver/%s", ucscDownloadBase, p.From, p.ChainFileName())
}

// ChainStore loads and caches parsed chain mappings. A given pair's chain
// is initialized at most once even under concurrent first use; parsed
// chains are held for the life of the store until Discard is called.
type ChainStore struct {
	dir        string
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.RWMutex
	chains map[Pair]*Chain
	group  singleflight.Group
}

// NewChainStore creates a store that keeps chain files under dir.
func NewChainStore(dir string) *ChainStore {
	return &ChainStore{
		dir:        dir,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     zap.NewNop(),
		chains:     make(map[Pair]*Chain),
	}
}

// SetLogger sets the logger for download and load messages.
func (s *ChainStore) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Get returns the chain mapping for an assembly pair, loading (and if
// necessary downloading) it on first use.
func (s *ChainStore) Get(ctx context.Context, pair Pair) (*Chain, error) {
	s.mu.RLock()
	c, ok := s.chains[pair]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := s.group.Do(pair.ChainFileName(), func() (any, error) {
		s.mu.RLock()
		c, ok := s.chains[pair]
		s.mu.RUnlock()
		if ok {
			return c, nil
		}

		path, err := s.ensureFile(ctx, pair)
		if err != nil {
			return nil, err
		}

		chain, err := OpenChainFile(path)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.chains[pair] = chain
		s.mu.Unlock()
		return chain, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chain), nil
}

// Discard drops all cached chains. Chain files on disk are kept; the next
// Get re-parses them.
func (s *ChainStore) Discard() {
	s.mu.Lock()
	s.chains = make(map[Pair]*Chain)
	s.mu.Unlock()
}

// ensureFile returns the local path of the pair's chain file, downloading
// it from UCSC when absent.
func (s *ChainStore) ensureFile(ctx context.Context, pair Pair) (string, error) {
	path := filepath.Join(s.dir, pair.ChainFileName())
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chain directory: %w", err)
	}

	url := pair.downloadURL()
	s.logger.Info("downloading chain file",
		zap.String("url", url),
		zap.String("dest", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build chain download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download chain file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download chain file %s: HTTP %s", url, resp.Status)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create chain file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write chain file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close chain file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize chain file: %w", err)
	}

	return path, nil
}
