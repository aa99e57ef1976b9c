// Package crawler fetches a page and extracts the DOM summary used to ground
// CRO suggestions.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/logger"
)

var (
	// ErrFetchFailed covers transport errors and non-2xx responses.
	ErrFetchFailed = errors.New("crawler: fetch failed")
	// ErrFetchTimeout means the page did not load before the deadline.
	ErrFetchTimeout = errors.New("crawler: fetch timed out")
	// ErrBlockedAddress is returned when a page resolves to a loopback,
	// private, link-local or otherwise internal address.
	ErrBlockedAddress = errors.New("crawler: address not allowed")
)

// SnapshotStore archives fetched HTML and returns a locator for it.
type SnapshotStore interface {
	Save(ctx context.Context, pageURL string, html []byte) (string, error)
}

// Fetcher downloads pages with a bounded time and size budget.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
	snapshots SnapshotStore
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithSnapshotStore archives every fetched page.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(f *Fetcher) { f.snapshots = s }
}

// NewFetcher builds a Fetcher from cfg.
func NewFetcher(cfg config.CrawlerConfig, opts ...Option) *Fetcher {
	client := &http.Client{}
	if !cfg.AllowPrivateNetworks {
		client = publicOnlyClient()
	}
	f := &Fetcher{
		client:    client,
		timeout:   cfg.Timeout(),
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// publicOnlyClient refuses connections to non-public addresses. The check
// runs on the resolved IP at dial time, so redirects and DNS names that
// point inward are caught too.
func publicOnlyClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   rejectInternal,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}

func rejectInternal(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !publicAddr(ip.Unmap()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return nil
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func publicAddr(ip netip.Addr) bool {
	switch {
	case !ip.IsValid(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		ip.IsUnspecified(),
		cgnat.Contains(ip):
		return false
	}
	return true
}

// Fetch loads rawURL and extracts the page summary. Bodies larger than the
// configured cap are truncated before parsing.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.PageData, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrFetchFailed, rawURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.maxBody > 0 {
		body = io.LimitReader(resp.Body, f.maxBody)
	}
	html, err := io.ReadAll(body)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}

	page, err := Extract(rawURL, html)
	if err != nil {
		return nil, err
	}

	if f.snapshots != nil {
		loc, err := f.snapshots.Save(ctx, rawURL, html)
		if err != nil {
			logger.Warn("crawler: snapshot failed", "url", rawURL, "error", err)
		} else {
			page.SnapshotURL = loc
		}
	}

	logger.Info("crawler: page fetched",
		"url", rawURL, "status", resp.StatusCode, "bytes", len(html),
		"headings", len(page.Headings), "ctas", len(page.CTAs), "duration", time.Since(start))
	return page, nil
}

// Extract builds a PageData from raw HTML.
func Extract(pageURL string, html []byte) (*domain.PageData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrFetchFailed, pageURL, err)
	}

	page := &domain.PageData{
		URL:      pageURL,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		HTML:     string(html),
		Headings: []string{},
		CTAs:     []string{},
		Forms:    []string{},
		PageType: domain.PageTypeUnknown,
	}
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			page.Headings = append(page.Headings, text)
		}
	})
	doc.Find("a, button").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			page.CTAs = append(page.CTAs, href)
		}
	})
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		if action, ok := s.Attr("action"); ok && action != "" {
			page.Forms = append(page.Forms, action)
		}
	})
	return page, nil
}

func fetchError(rawURL string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", ErrFetchTimeout, rawURL, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrFetchFailed, rawURL, err)
}
