// Package targets lists design documents open in a desktop client that
// exposes a Chrome DevTools Protocol /json endpoint.
package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultEndpoint is the usual remote-debugging listing URL.
const DefaultEndpoint = "http://127.0.0.1:9222/json"

const fetchTimeout = 3 * time.Second

var fileKeyPattern = regexp.MustCompile(`/(?:design|file)/([A-Za-z0-9]+)`)

// File is one open design document.
type File struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	FileKey string `json:"fileKey"`
}

// Listing is the result of a query. Current is the first file, which the
// client reports for its most recently focused tab.
type Listing struct {
	Count   int    `json:"count"`
	Current *File  `json:"current_candidate"`
	Files   []File `json:"files"`
}

// Client queries a CDP endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient creates a client for endpoint (DefaultEndpoint when empty).
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{Endpoint: endpoint, HTTP: &http.Client{Timeout: fetchTimeout}}
}

// List fetches the endpoint and returns the open design documents.
func (c *Client) List(ctx context.Context) (Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to query %s: %w", c.Endpoint, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to query %s: %w", c.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Listing{}, fmt.Errorf("failed to query %s: status %d", c.Endpoint, resp.StatusCode)
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Listing{}, fmt.Errorf("failed to query %s: %w", c.Endpoint, err)
	}
	return Filter(raw), nil
}

// Filter selects page targets whose URL points at a design or file document.
// Anything that is not a list of objects yields an empty listing.
func Filter(raw any) Listing {
	items, _ := raw.([]any)
	files := []File{}
	for _, item := range items {
		t, ok := item.(map[string]any)
		if !ok || str(t["type"]) != "page" {
			continue
		}
		url := str(t["url"])
		if !IsDesignURL(url) {
			continue
		}
		files = append(files, File{
			ID:      str(t["id"]),
			Title:   str(t["title"]),
			URL:     url,
			FileKey: FileKey(url),
		})
	}

	l := Listing{Count: len(files), Files: files}
	if len(files) > 0 {
		l.Current = &files[0]
	}
	return l
}

// IsDesignURL reports whether url names a design or file document.
func IsDesignURL(url string) bool {
	return strings.Contains(url, "/design/") || strings.Contains(url, "/file/")
}

// FileKey extracts the document key from a design or file URL.
func FileKey(url string) string {
	if m := fileKeyPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
