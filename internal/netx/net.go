// Package netx pushes bytes straight to object storage through pre-signed URLs.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxErrorBody = 512

var ErrUploadRejected = errors.New("upload rejected")

// StatusError reports a non-2xx answer from the storage endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload failed: %s", e.Status)
	}
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUploadRejected
}

// Uploader issues binary PUTs to pre-signed URLs. It is safe for
// concurrent use.
type Uploader struct {
	client *http.Client
}

// NewUploader returns an Uploader whose transport gives up on a single
// file after timeout. Zero means no transport timeout; ctx still applies.
func NewUploader(timeout time.Duration) *Uploader {
	return &Uploader{client: &http.Client{Timeout: timeout}}
}

// NewUploaderWithClient is used when the caller owns the *http.Client.
func NewUploaderWithClient(c *http.Client) *Uploader {
	return &Uploader{client: c}
}

// Put uploads size bytes from body to url with the given content type.
// Any 2xx status is success.
func (u *Uploader) Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
