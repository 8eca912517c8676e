// Package search provides the information source the expert workers use
// to ground their recommendations: a web search call returning formatted
// result text, and a page fetch returning readable article text.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/tripweaver/tripweaver/core"
)

// InformationSource is the contract consumed by the expert workers.
type InformationSource interface {
	// Search returns search results formatted as plain text.
	Search(ctx context.Context, query string) (string, error)
	// FetchDetail returns the readable text content of a web page.
	FetchDetail(ctx context.Context, pageURL string) (string, error)
}

// NaverSource implements InformationSource against the Naver open
// search API (webkr vertical).
type NaverSource struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       core.Logger
}

// SourceOption configures a NaverSource
type SourceOption func(*NaverSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *NaverSource) { s.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) SourceOption {
	return func(s *NaverSource) { s.logger = l }
}

// NewNaverSource creates an information source from configuration.
func NewNaverSource(cfg core.SearchConfig, opts ...SourceOption) *NaverSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://openapi.naver.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &NaverSource{
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
	} `json:"items"`
}

// Search calls the web search API and formats results as numbered
// plain-text entries the completion model can ground on.
func (s *NaverSource) Search(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/search/webkr.json?query=%s&display=10&start=1&sort=sim",
		s.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search call: %v: %w", err, core.ErrConnectionFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Search API returned non-OK status", map[string]interface{}{
			"operation":   "search",
			"status_code": resp.StatusCode,
			"query":       query,
		})
		return "", fmt.Errorf("search API returned %d: %w", resp.StatusCode, core.ErrRequestFailed)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}

	return formatResults(query, parsed), nil
}

// formatResults renders the API response as text for prompt grounding.
func formatResults(query string, parsed searchResponse) string {
	if len(parsed.Items) == 0 {
		return fmt.Sprintf("No search results for %q.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n", query)
	for i, item := range parsed.Items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, stripHTMLTags(item.Title))
		fmt.Fprintf(&sb, "   Link: %s\n", item.Link)
		fmt.Fprintf(&sb, "   Summary: %s\n", stripHTMLTags(item.Description))
	}
	return sb.String()
}

const maxDetailLength = 4000

// FetchDetail downloads a page and extracts its readable text content.
func (s *NaverSource) FetchDetail(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch call: %v: %w", err, core.ErrConnectionFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch returned %d: %w", resp.StatusCode, core.ErrRequestFailed)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		s.logger.Debug("Readability extraction failed", map[string]interface{}{
			"operation": "fetch_detail",
			"url":       pageURL,
			"error":     err.Error(),
		})
		return "", fmt.Errorf("failed to extract page content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > maxDetailLength {
		text = text[:maxDetailLength]
	}
	return text, nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripHTMLTags(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return strings.TrimSpace(s)
}
