package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/dankgo/dank/internal/reddit"
)

// defaultParallel is used when the configured parallelism is not positive.
const defaultParallel = 4

// fallbackName is used when a URL path yields no usable file name.
const fallbackName = "media"

// ErrTooLarge is returned when a download exceeds the configured size cap.
var ErrTooLarge = errors.New("media: download exceeds size limit")

// Fetcher streams a media URL. *reddit.Client satisfies it.
type Fetcher interface {
	DownloadURL(ctx context.Context, mediaURL string, w io.Writer, progress reddit.ProgressFunc) (int64, error)
}

// Downloader writes linked media into a directory, reporting each Job
// transition to a callback.
type Downloader struct {
	fetcher  Fetcher
	dir      string
	parallel int
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	reserved map[string]bool
}

// NewDownloader creates a Downloader writing into dir with at most parallel
// concurrent downloads in DownloadAll.
func NewDownloader(fetcher Fetcher, dir string, parallel int, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}

	if parallel <= 0 {
		parallel = defaultParallel
	}

	return &Downloader{
		fetcher:  fetcher,
		dir:      dir,
		parallel: parallel,
		logger:   logger,
		now:      time.Now,
		reserved: make(map[string]bool),
	}
}

// SetMaxBytes caps the size of a single download; 0 disables the cap.
func (d *Downloader) SetMaxBytes(n int64) {
	d.maxBytes = n
}

// Download fetches link into the download directory. onUpdate, if non-nil,
// receives Connecting, an InFlight job for every whole-percent increase when
// the size is known, and finally Downloaded or Failed. The final job is also
// returned. The file is written to a .partial sibling and renamed into
// place only once complete.
func (d *Downloader) Download(ctx context.Context, link Link, onUpdate func(Job)) (Job, error) {
	emit := func(j Job) {
		if onUpdate != nil {
			onUpdate(j)
		}
	}

	emit(NewConnecting(link, d.now()))

	target, err := d.reserve(link.URL)
	if err != nil {
		return d.fail(link, emit, err)
	}
	defer d.release(target)

	partialPath := target + ".partial"

	f, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:mnd // owner-only file perms
	if err != nil {
		return d.fail(link, emit, fmt.Errorf("media: creating %s: %w", partialPath, err))
	}

	lastPct := -1
	progress := func(written, total int64) {
		if total <= 0 {
			return
		}

		pct := int(written * 100 / total)
		if pct <= lastPct || pct > 100 {
			return
		}

		lastPct = pct

		if j, perr := NewProgress(link, pct, d.now()); perr == nil {
			emit(j)
		}
	}

	var w io.Writer = f
	if d.maxBytes > 0 {
		w = &limitWriter{w: f, remaining: d.maxBytes}
	}

	n, err := d.fetcher.DownloadURL(ctx, link.URL, w, progress)

	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("media: closing %s: %w", partialPath, cerr)
	}

	if err != nil {
		os.Remove(partialPath)
		return d.fail(link, emit, err)
	}

	if err := os.Rename(partialPath, target); err != nil {
		os.Remove(partialPath)
		return d.fail(link, emit, fmt.Errorf("media: renaming partial to %s: %w", target, err))
	}

	done, err := NewDownloaded(link, target, d.now())
	if err != nil {
		return d.fail(link, emit, err)
	}

	emit(done)

	d.logger.Info("media downloaded",
		slog.String("url", link.URL),
		slog.String("file", target),
		slog.Int64("size", n),
	)

	return done, nil
}

func (d *Downloader) fail(link Link, emit func(Job), err error) (Job, error) {
	failed := NewFailed(link, d.now())
	emit(failed)

	d.logger.Warn("media download failed",
		slog.String("url", link.URL),
		slog.String("error", err.Error()),
	)

	return failed, err
}

// limitWriter fails once more than remaining bytes are written.
type limitWriter struct {
	w         io.Writer
	remaining int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.remaining {
		return 0, ErrTooLarge
	}

	n, err := l.w.Write(p)
	l.remaining -= int64(n)

	return n, err
}

// DownloadAll downloads links with bounded parallelism. A failed download
// does not stop the others; the returned jobs are in link order and the
// error joins every individual failure. onUpdate may be called from several
// goroutines at once.
func (d *Downloader) DownloadAll(ctx context.Context, links []Link, onUpdate func(Job)) ([]Job, error) {
	jobs := make([]Job, len(links))

	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)

	for i, link := range links {
		g.Go(func() error {
			job, err := d.Download(gctx, link, onUpdate)
			jobs[i] = job

			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", link.URL, err))
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	return jobs, errors.Join(errs...)
}

// reserve picks a free target path for mediaURL and holds it until
// release, so concurrent downloads of same-named media do not collide.
func (d *Downloader) reserve(mediaURL string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o700); err != nil { //nolint:mnd // owner-only dir perms
		return "", fmt.Errorf("media: creating download dir: %w", err)
	}

	name := FileName(mediaURL)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}

		target := filepath.Join(d.dir, candidate)
		if d.reserved[target] {
			continue
		}

		if _, err := os.Stat(target); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("media: checking %s: %w", target, err)
		}

		d.reserved[target] = true

		return target, nil
	}
}

func (d *Downloader) release(target string) {
	d.mu.Lock()
	delete(d.reserved, target)
	d.mu.Unlock()
}

// FileName derives a safe, NFC-normalized local file name from the last
// path segment of mediaURL.
func FileName(mediaURL string) string {
	var base string

	if u, err := url.Parse(mediaURL); err == nil {
		base = path.Base(u.Path)
	}

	base = norm.NFC.String(base)
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}

		return r
	}, base)

	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." || base == "_" {
		return fallbackName
	}

	return base
}
