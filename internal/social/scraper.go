// Package social fetches recent posts of public accounts by scraping their
// HTML profile pages.
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Defaults for a Scraper.
const (
	DefaultSelector = ".timeline-item .tweet-content"
	DefaultLimit    = 20
)

// Scraper reads posts from <BaseURL>/<account>.
type Scraper struct {
	baseURL     string
	selector    string
	limit       int
	maxBodySize int64
	userAgent   string
	client      *http.Client
	log         *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithSelector sets the CSS selector matching one post's text.
func WithSelector(sel string) Option {
	return func(s *Scraper) { s.selector = sel }
}

// WithLimit caps the number of posts returned.
func WithLimit(n int) Option {
	return func(s *Scraper) { s.limit = n }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.client.Timeout = d }
}

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) { s.log = l }
}

// NewScraper returns a scraper for profile pages under baseURL.
func NewScraper(baseURL string, opts ...Option) *Scraper {
	s := &Scraper{
		baseURL:     strings.TrimRight(baseURL, "/"),
		selector:    DefaultSelector,
		limit:       DefaultLimit,
		maxBodySize: 2 * 1024 * 1024,
		userAgent:   "brick",
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Posts returns the newest posts of account, in page order.
func (s *Scraper) Posts(ctx context.Context, account string) ([]string, error) {
	u := s.baseURL + "/" + url.PathEscape(account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", u, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}

	var posts []string
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			posts = append(posts, text)
		}
		return s.limit <= 0 || len(posts) < s.limit
	})
	s.log.Debug("posts fetched", zap.String("account", account), zap.Int("count", len(posts)))
	return posts, nil
}
