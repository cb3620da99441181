// Bandcamp implementation of [Marketplace]
//
// Bandcamp has no public API for search or collections; both are scraped from HTML.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoticamper/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBandcampURL = "https://bandcamp.com"
	defaultSearchRate  = 5.0

	searchResultSelector = ".searchresult"
	resultLinkSelector   = "a[href]"
	purchaseSelector     = ".item-link"
)

// BandcampOpts configures a [BandcampService].
type BandcampOpts struct {
	BaseURL    string
	Username   string
	Token      string  // value of the "identity" cookie
	RateLimit  float64 // search requests per second
	HTTPClient *http.Client
	Retry      RetryPolicy
	Logger     *log.Logger
}

// BandcampService implements [Marketplace] by scraping bandcamp.com.
//
// Every search request, retries included, passes through a single rate limiter; callers block until a slot is free.
type BandcampService struct {
	baseURL    string
	username   string
	token      string
	limiter    *rate.Limiter
	httpClient *http.Client
	retry      RetryPolicy
	logger     *log.Logger
}

// NewBandcampService creates a new Bandcamp service.
func NewBandcampService(opts BandcampOpts) *BandcampService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBandcampURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultSearchRate
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &BandcampService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		username:   opts.Username,
		token:      opts.Token,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		httpClient: opts.HTTPClient,
		retry:      opts.Retry,
		logger:     opts.Logger,
	}
}

func (b *BandcampService) Name() string {
	return "Bandcamp"
}

// SearchAlbum runs a Bandcamp search and returns the first result's URL without its query string.
//
// Returns "" when the search has no results or the first result links to no host.
func (b *BandcampService) SearchAlbum(ctx context.Context, query string) (string, error) {
	endpoint := b.baseURL + "/search?" + url.Values{"q": {query}}.Encode()
	doc, err := b.fetchDocument(ctx, endpoint, false, true)
	if err != nil {
		return "", err
	}

	results := doc.Find(searchResultSelector)
	if results.Length() == 0 {
		return "", nil
	}

	href, ok := results.First().Find(resultLinkSelector).First().Attr("href")
	if !ok {
		return "", fmt.Errorf("%w: first search result for %q has no link", shared.ErrParse, query)
	}

	listing, err := NormalizeListingURL(href)
	if errors.Is(err, shared.ErrParse) {
		b.logger.Warn("ignoring search result without a host", "query", query, "href", href)
		return "", nil
	}
	return listing, err
}

// Purchases returns every link on the user's collection page.
func (b *BandcampService) Purchases(ctx context.Context) ([]string, error) {
	if b.username == "" || b.token == "" {
		return nil, fmt.Errorf("%w: bandcamp username and identity token are required", shared.ErrMissingCredentials)
	}

	doc, err := b.fetchDocument(ctx, b.baseURL+"/"+url.PathEscape(b.username), true, false)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find(purchaseSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links, nil
}

// fetchDocument GETs endpoint and parses the HTML body. Limited requests wait on the limiter before every attempt.
func (b *BandcampService) fetchDocument(ctx context.Context, endpoint string, identity, limited bool) (*goquery.Document, error) {
	resp, err := doWithRetry(ctx, b.httpClient, b.retry, func(ctx context.Context) (*http.Request, error) {
		if limited {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if identity {
			req.Header.Set("Cookie", "identity="+b.token)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: bandcamp status %d for %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrParse, err)
	}
	return doc, nil
}

// NormalizeListingURL rebuilds a listing link as https://host/path, matching the links on collection pages.
func NormalizeListingURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: listing link %q: %v", shared.ErrParse, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: listing link %q has no host", shared.ErrParse, raw)
	}

	return "https://" + u.Host + u.Path, nil
}
