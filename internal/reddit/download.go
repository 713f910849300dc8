package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNoDownloadURL is returned when a media download is requested with an
// empty URL.
var ErrNoDownloadURL = errors.New("reddit: media link has no URL")

// ProgressFunc receives the bytes written so far and the expected total.
// total is -1 when the server did not announce a Content-Length.
type ProgressFunc func(written, total int64)

// DownloadURL streams public media content (i.redd.it, v.redd.it and
// similar hosts) to w. Media hosts do not accept bearer tokens, so no
// Authorization header is sent. Returns the number of bytes written.
func (c *Client) DownloadURL(ctx context.Context, mediaURL string, w io.Writer, progress ProgressFunc) (int64, error) {
	if mediaURL == "" {
		return 0, ErrNoDownloadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("reddit: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reddit: download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)

		return 0, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	pw := &progressWriter{w: w, total: resp.ContentLength, progress: progress}

	n, copyErr := io.Copy(pw, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("reddit: streaming download content: %w", copyErr)
	}

	return n, nil
}

// progressWriter reports cumulative bytes after every write.
type progressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)

	if p.progress != nil {
		p.progress(p.written, p.total)
	}

	return n, err
}
