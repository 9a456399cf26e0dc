package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxDownloadBytes matches the Bot API getFile limit (20 MB).
const maxDownloadBytes = 20 << 20

// Download resolves fileID via getFile and fetches its content.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	var f TelegramFile
	if err := c.do(ctx, "getFile", map[string]any{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, errors.New("telegram getFile returned no file_path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(fileURL, c.token, f.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", f.FilePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", f.FilePath, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.FilePath, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", f.FilePath, maxDownloadBytes)
	}
	return data, nil
}
