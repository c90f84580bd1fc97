package pollination

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// AddFileToProject registers key with the project and uploads content to the
// signed storage location in one call. Project files live in a cloud bucket,
// so the API first hands out a signed URL plus authorization form fields; the
// bytes then go there directly, outside the authenticated session.
func (c *Client) AddFileToProject(ctx context.Context, projectName, key string, content io.Reader) error {
	target, err := c.CreateArtifact(ctx, projectName, Artifact{Key: key})
	if err != nil {
		return err
	}
	return c.uploadTo(ctx, target, key, content)
}

// uploadTo posts the file content to the signed storage URL. The signed form
// fields must precede the file part. Storage answers 204 on success; any
// other status is an error.
func (c *Client) uploadTo(ctx context.Context, target UploadTarget, key string, content io.Reader) error {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	for field, value := range target.Fields {
		if err := writer.WriteField(field, value); err != nil {
			return fmt.Errorf("write form field %s: %w", field, err)
		}
	}
	part, err := writer.CreateFormFile("file", key)
	if err != nil {
		return fmt.Errorf("create file part for %s: %w", key, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read %s into upload form: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &form)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("storage returned status %d for %s: %s",
			resp.StatusCode, key, bytes.TrimSpace(snippet))
	}
	TotalUploads.Inc()
	return nil
}
