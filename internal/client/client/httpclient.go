package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
)

// envelope is the response wrapper used by every endpoint. On failure Data
// usually holds a message string.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// HTTPClient talks to the inventory REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return NewHTTPClientWithClient(baseURL, &http.Client{Timeout: timeout})
}

func NewHTTPClientWithClient(baseURL string, hc *http.Client) *HTTPClient {
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}

	var data struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, nil, http.MethodPost, "/api/login", nil, body, &data); err != nil {
		return "", err
	}
	if data.Token == "" {
		return "", fmt.Errorf("%w: login returned no token", ErrMalformedResponse)
	}
	return data.Token, nil
}

// InitiateBatch creates one placeholder record per group. The result is
// keyed by group number as sent ("1", "2", ...). A group missing from the
// result, or returned without an id, was not created.
func (c *HTTPClient) InitiateBatch(ctx context.Context, s *session.Session, groups []models.ListingGroup, photos int) (map[string]models.BatchSlot, error) {
	body := make(map[string][]string, len(groups))
	for _, g := range groups {
		body[g.Key()] = g.Filenames()
	}

	q := url.Values{}
	q.Set("count", strconv.Itoa(len(groups)))
	q.Set("photos", strconv.Itoa(photos))

	var data map[string]models.BatchSlot
	if err := c.do(ctx, s, http.MethodPost, "/api/v2/inventory/batch", q, body, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: empty batch result", ErrMalformedResponse)
	}
	return data, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := c.do(ctx, s, http.MethodGet, recordPath(id), nil, nil, &rec); err != nil {
		return nil, err
	}
	if rec.Images == nil {
		rec.Images = []string{}
	}
	return &rec, nil
}

func (c *HTTPClient) PatchRecord(ctx context.Context, s *session.Session, id string, patch models.RecordPatch) error {
	return c.do(ctx, s, http.MethodPatch, recordPath(id), nil, patch, nil)
}

// DeleteRecord soft-deactivates a record.
func (c *HTTPClient) DeleteRecord(ctx context.Context, s *session.Session, id string) error {
	return c.do(ctx, s, http.MethodDelete, recordPath(id), nil, nil, nil)
}

func (c *HTTPClient) RequestImageUpload(ctx context.Context, s *session.Session, id, filename string) (*models.UploadTarget, error) {
	q := url.Values{}
	q.Set("filename", filename)

	var t models.UploadTarget
	if err := c.do(ctx, s, http.MethodPut, recordPath(id), q, nil, &t); err != nil {
		return nil, err
	}
	if t.PresignedURL == "" {
		return nil, fmt.Errorf("%w: no presigned url", ErrMalformedResponse)
	}
	return &t, nil
}

func (c *HTTPClient) CreateArchiveJob(ctx context.Context, s *session.Session, filename string, photos int) (*models.ArchiveJob, error) {
	q := url.Values{}
	q.Set("filename", filename)
	q.Set("photos", strconv.Itoa(photos))

	var j models.ArchiveJob
	if err := c.do(ctx, s, http.MethodGet, "/api/v2/inventory/job", q, nil, &j); err != nil {
		return nil, err
	}
	if j.UploadURL == "" {
		return nil, fmt.Errorf("%w: no upload url", ErrMalformedResponse)
	}
	return &j, nil
}

func recordPath(id string) string {
	return "/api/v2/inventory/" + url.PathEscape(id)
}

// do performs one API call and decodes the envelope's data into out when
// out is non-nil.
func (c *HTTPClient) do(ctx context.Context, s *session.Session, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s != nil {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+s.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if err := mapStatus(resp.StatusCode, raw); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %w", method, path, &APIError{Status: resp.StatusCode, Message: envelopeMessage(env.Data)})
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s %s: no data", ErrMalformedResponse, method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

func mapStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return common.ErrNotFound
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		var env envelope
		msg := ""
		if json.Unmarshal(body, &env) == nil {
			msg = envelopeMessage(env.Data)
		}
		return &APIError{Status: code, Message: msg}
	}
}

// envelopeMessage extracts a human readable message from a failed
// envelope's data, which is a string or an object with message/error.
func envelopeMessage(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}
	return ""
}

var _ Client = (*HTTPClient)(nil)

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformedResponse)
}
