package pollination

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// OpenDownload starts streaming the content behind a signed URL. The URL
// embeds its own authorization, so no API headers are attached. The caller
// owns the returned body.
func (c *Client) OpenDownload(ctx context.Context, signedURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, fmt.Errorf("download returned status %d: %s",
			resp.StatusCode, bytes.TrimSpace(snippet))
	}
	TotalDownloads.Inc()
	return resp.Body, nil
}

// Download streams the content behind a signed URL into w and reports the
// number of bytes written.
func (c *Client) Download(ctx context.Context, signedURL string, w io.Writer) (int64, error) {
	body, err := c.OpenDownload(ctx, signedURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("stream download: %w", err)
	}
	return n, nil
}
