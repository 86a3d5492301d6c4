package enrich

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetchedPage is the raw result of fetching one opportunity source URL.
type FetchedPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// Fetcher retrieves remote documents for enrichment.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*FetchedPage, error)
}

// CollyFetcher fetches pages with rate limiting and retries.
type CollyFetcher struct {
	UserAgent      string
	MaxRetries     int
	RequestTimeout time.Duration
	DomainDelay    time.Duration
	MaxBodySize    int
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MaxRetries:     2,
		RequestTimeout: 30 * time.Second,
		DomainDelay:    1 * time.Second,
		MaxBodySize:    10 * 1024 * 1024,
	}
}

func (f *CollyFetcher) buildCollector(host string) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.AllowedDomains(host),
		colly.DetectCharset(),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       f.DomainDelay,
	})
	c.SetRequestTimeout(f.RequestTimeout)

	c.OnError(func(r *colly.Response, err error) {
		if r.Request.Ctx.GetAny("retries") == nil {
			r.Request.Ctx.Put("retries", 0)
		}
		retries := r.Request.Ctx.GetAny("retries").(int)
		if retries < f.MaxRetries {
			r.Request.Ctx.Put("retries", retries+1)
			log.Printf("[enrich] retry %d/%d for %s: %v", retries+1, f.MaxRetries, r.Request.URL, err)
			time.Sleep(time.Duration(retries+1) * time.Second)
			r.Request.Retry()
		}
	})

	return c
}

// Fetch retrieves the document at targetURL. Enrichment callers treat any
// error as advisory and keep the opportunity unenriched.
func (f *CollyFetcher) Fetch(ctx context.Context, targetURL string) (*FetchedPage, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL without host: %s", targetURL)
	}

	c := f.buildCollector(parsed.Host)

	var (
		page     *FetchedPage
		fetchErr error
		once     sync.Once
		done     = make(chan struct{})
	)

	c.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			page = &FetchedPage{
				URL:         r.Request.URL.String(),
				StatusCode:  r.StatusCode,
				ContentType: r.Headers.Get("Content-Type"),
				Body:        bytes.Clone(r.Body),
				FetchedAt:   time.Now(),
			}
			close(done)
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		retries, _ := r.Request.Ctx.GetAny("retries").(int)
		if retries >= f.MaxRetries {
			once.Do(func() {
				fetchErr = fmt.Errorf("fetch %s: %w", targetURL, err)
				close(done)
			})
		}
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	c.Wait()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("fetch %s: no response", targetURL)
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if page.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", targetURL, page.StatusCode)
	}
	return page, nil
}
