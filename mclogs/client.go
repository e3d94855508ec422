package mclogs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var _ Uploader = (*Client)(nil)

// ErrTooLarge is returned when an attachment exceeds the configured size.
var ErrTooLarge = errors.New("mclogs: attachment too large")

// Paste is a successfully uploaded log.
type Paste struct {
	ID  string
	URL string
	Raw string
}

// Uploader fetches attachments and uploads them to the paste service.
type Uploader interface {
	Fetch(ctx context.Context, rawURL string, maxBytes int64) (string, error)
	Upload(ctx context.Context, content string) (Paste, error)
}

// Client uploads logs to mclo.gs.
type Client struct {
	apiURL string
	http   *http.Client
}

// NewClient creates a new mclo.gs client.
func NewClient(apiURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiURL: apiURL,
		http:   httpClient,
	}
}

// Upload posts content as a new log and returns its links.
func (c *Client) Upload(ctx context.Context, content string) (Paste, error) {
	if strings.TrimSpace(content) == "" {
		return Paste{}, errors.New("mclogs: empty log")
	}

	form := url.Values{}
	form.Set("content", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Paste{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Paste{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Paste{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Paste{}, fmt.Errorf("mclogs: status %d: %s", resp.StatusCode, string(body))
	}

	result := gjson.ParseBytes(body)
	if !result.Get("success").Bool() {
		msg := result.Get("error").String()
		if msg == "" {
			msg = "upload rejected"
		}
		return Paste{}, fmt.Errorf("mclogs: %s", msg)
	}

	return Paste{
		ID:  result.Get("id").String(),
		URL: result.Get("url").String(),
		Raw: result.Get("raw").String(),
	}, nil
}

// Fetch downloads an attachment as text, refusing anything above maxBytes.
func (c *Client) Fetch(ctx context.Context, rawURL string, maxBytes int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mclogs: download status %d", resp.StatusCode)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return "", ErrTooLarge
	}

	var reader io.Reader = resp.Body
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	return string(data), nil
}
