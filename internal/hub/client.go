// Package hub fetches model repositories from remote model hubs.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source names a supported hub.
type Source string

const (
	HuggingFace Source = "huggingface"
	ModelScope  Source = "modelscope"
)

const (
	defaultHFEndpoint         = "https://huggingface.co"
	defaultModelScopeEndpoint = "https://www.modelscope.cn"
	defaultConcurrency        = 4
	defaultRetries            = 3
)

// ErrUnknownSource is returned by ParseSource for hubs other than huggingface and modelscope.
var ErrUnknownSource = errors.New("unknown download source")

// ParseSource maps a request value to a Source. Empty means huggingface.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", HuggingFace:
		return HuggingFace, nil
	case ModelScope:
		return ModelScope, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Progress receives cumulative bytes written and the total bytes listed for the repository.
// Calls are serialized.
type Progress func(done, total int64)

// File is one entry of a repository listing.
type File struct {
	Path string
	Size int64
}

// provider knows how to list a repository and locate its files on one hub.
type provider interface {
	list(ctx context.Context, id string) ([]File, error)
	fileURL(id, path string) string
	authorize(req *retryablehttp.Request)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	HFEndpoint         string
	ModelScopeEndpoint string
	// Bearer token sent to Hugging Face.
	Token string
	// Revision overrides the hub default branch (main / master).
	Revision     string
	Concurrency  int
	Retries      int
	RetryWaitMin time.Duration
	HTTPClient   *http.Client
	Logger       *zerolog.Logger
}

// Client downloads repositories with retries and bounded parallelism.
type Client struct {
	http        *retryablehttp.Client
	log         zerolog.Logger
	concurrency int
	providers   map[Source]provider
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "hub").Logger()
	}
	rc := retryablehttp.NewClient()
	rc.Logger = leveledLogger{log: log}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RetryMax = defaultRetries
	if opts.Retries > 0 {
		rc.RetryMax = opts.Retries
	} else if opts.Retries < 0 {
		rc.RetryMax = 0
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
		if rc.RetryWaitMax < opts.RetryWaitMin {
			rc.RetryWaitMax = opts.RetryWaitMin
		}
	}
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	c := &Client{http: rc, log: log, concurrency: opts.Concurrency}
	if c.concurrency <= 0 {
		c.concurrency = defaultConcurrency
	}
	hfBase := strings.TrimRight(firstNonEmpty(opts.HFEndpoint, defaultHFEndpoint), "/")
	msBase := strings.TrimRight(firstNonEmpty(opts.ModelScopeEndpoint, defaultModelScopeEndpoint), "/")
	c.providers = map[Source]provider{
		HuggingFace: &huggingFace{c: c, base: hfBase, rev: firstNonEmpty(opts.Revision, "main"), token: opts.Token},
		ModelScope:  &modelScope{c: c, base: msBase, rev: firstNonEmpty(opts.Revision, "master")},
	}
	return c
}

func (c *Client) lookup(src Source) (Source, provider, error) {
	if src == "" {
		src = HuggingFace
	}
	p, ok := c.providers[src]
	if !ok {
		return src, nil, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	return src, p, nil
}

// List returns the files of repository id on src. An empty repository is an error.
func (c *Client) List(ctx context.Context, src Source, id string) ([]File, error) {
	src, p, err := c.lookup(src)
	if err != nil {
		return nil, err
	}
	files, err := p.list(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list %s on %s: %w", id, src, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("list %s on %s: repository has no files", id, src)
	}
	return files, nil
}

// Fetch downloads every file of repository id from src into destDir, preserving relative paths.
// destDir is created if needed. On error, partially written files are left for the caller to
// discard.
func (c *Client) Fetch(ctx context.Context, src Source, id, destDir string, progress Progress) error {
	files, err := c.List(ctx, src, id)
	if err != nil {
		return err
	}
	return c.FetchFiles(ctx, src, id, files, destDir, progress)
}

// FetchFiles downloads files, as returned by List, of repository id into destDir.
func (c *Client) FetchFiles(ctx context.Context, src Source, id string, files []File, destDir string, progress Progress) error {
	src, p, err := c.lookup(src)
	if err != nil {
		return err
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	c.log.Info().Str("model", id).Str("source", string(src)).Int("files", len(files)).
		Str("size", humanize.Bytes(uint64(total))).Msg("fetch start")

	var (
		done atomic.Int64
		pmu  sync.Mutex
	)
	report := func(n int64) {
		d := done.Add(n)
		downloadBytesTotal.WithLabelValues(string(src)).Add(float64(n))
		if progress == nil {
			return
		}
		pmu.Lock()
		progress(d, total)
		pmu.Unlock()
	}
	if progress != nil {
		progress(0, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, f := range files {
		f := f
		g.Go(func() error {
			return c.fetchFile(gctx, p, id, f, destDir, report)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.log.Info().Str("model", id).Str("source", string(src)).
		Str("size", humanize.Bytes(uint64(done.Load()))).Msg("fetch done")
	return nil
}

func (c *Client) fetchFile(ctx context.Context, p provider, id string, f File, destDir string, report func(int64)) error {
	target, err := safeJoin(destDir, f.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Path, err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.fileURL(id, f.Path), nil)
	if err != nil {
		return err
	}
	p.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", f.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %w", f.Path, statusError(resp))
	}
	tmp := target + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Path, err)
	}
	_, copyErr := io.Copy(out, &countingReader{r: resp.Body, add: report})
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("download %s: %w", f.Path, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", f.Path, closeErr)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("finalize %s: %w", f.Path, err)
	}
	c.log.Debug().Str("model", id).Str("file", f.Path).Msg("file done")
	return nil
}

func (c *Client) getJSON(ctx context.Context, p provider, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	p.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// safeJoin joins a repository-relative path under dir, rejecting escapes.
func safeJoin(dir, rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return "", fmt.Errorf("refusing repository path %q", rel)
	}
	target := filepath.Join(dir, filepath.FromSlash(rel))
	r, err := filepath.Rel(dir, target)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing repository path %q", rel)
	}
	return target, nil
}

// HTTPStatusError reports an unexpected hub response.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hub returned %d", e.Status)
	}
	return fmt.Sprintf("hub returned %d: %s", e.Status, e.Body)
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &HTTPStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

type countingReader struct {
	r   io.Reader
	add func(int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.add(int64(n))
	}
	return n, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
