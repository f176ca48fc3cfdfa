package bookmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPClient talks to a bookmark server under <base>/api/v1/bookmarks.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient creates a client for the server at baseURL. A nil client
// uses one with a 10 second timeout.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/") + "/api/v1/bookmarks",
		http: client,
	}
}

// List returns the bookmarks of one book.
func (c *HTTPClient) List(ctx context.Context, bookID int64) ([]Bookmark, error) {
	var out []Bookmark
	if err := c.do(ctx, http.MethodGet, c.base+"/book/"+strconv.FormatInt(bookID, 10), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a bookmark and returns it as stored by the server.
func (c *HTTPClient) Create(ctx context.Context, req CreateRequest) (Bookmark, error) {
	if err := validate(req); err != nil {
		return Bookmark{}, err
	}
	var out Bookmark
	if err := c.do(ctx, http.MethodPost, c.base, req, &out); err != nil {
		return Bookmark{}, err
	}
	return out, nil
}

// Delete removes a bookmark.
func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.base+"/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: string(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, url, err)
	}
	return nil
}
