// Package fetcher crawls a site and collects the PDFs it links to.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/pdf-rag/internal/events"
)

// Config holds fetcher configuration.
type Config struct {
	Delay       time.Duration
	MaxDepth    int // 1 fetches only the start URL; 2 also follows its links
	UserAgent   string
	Timeout     time.Duration
	MaxFileSize int                            // bytes; larger responses are skipped
	OnComplete  func(events.FetchCompleteEvent) // optional
}

// RemotePDF is a PDF downloaded during a crawl.
type RemotePDF struct {
	URL      string
	Filename string
	Data     []byte
}

// Fetcher downloads PDFs from a start URL and the same-host pages it links to.
type Fetcher struct {
	config Config
}

// New creates a new Fetcher with the given configuration.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "PDF-RAG/1.0"
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 50 << 20
	}
	return &Fetcher{config: config}
}

// Fetch visits startURL and collects every PDF response reachable within
// MaxDepth without leaving the start host. The context can be used to
// cancel the crawl; PDFs fetched so far are returned with the error.
func (f *Fetcher) Fetch(ctx context.Context, startURL string) ([]RemotePDF, error) {
	var (
		pdfs      []RemotePDF
		seen      = make(map[string]bool)
		mu        sync.Mutex
		cancelled bool
	)

	parsedURL, err := url.Parse(startURL)
	if err != nil || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", startURL)
	}

	slog.Debug("starting fetch", "url", startURL, "max_depth", f.config.MaxDepth)

	c := colly.NewCollector(
		colly.MaxDepth(f.config.MaxDepth),
		colly.UserAgent(f.config.UserAgent),
		// One byte over the limit tells a truncated body from an exact fit.
		colly.MaxBodySize(f.config.MaxFileSize+1),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       f.config.Delay,
		Parallelism: 2,
	})
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			mu.Lock()
			cancelled = true
			mu.Unlock()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 {
			return
		}
		pageURL := r.Request.URL.String()
		contentType := r.Headers.Get("Content-Type")

		if !Detect(pageURL, contentType, r.Body) {
			return
		}
		if len(r.Body) > f.config.MaxFileSize {
			slog.Warn("skipping oversized PDF", "url", pageURL, "limit", f.config.MaxFileSize)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if seen[pageURL] {
			return
		}
		seen[pageURL] = true
		pdfs = append(pdfs, RemotePDF{
			URL:      pageURL,
			Filename: filenameFor(r.Request.URL),
			Data:     r.Body,
		})
		slog.Debug("fetched PDF", "url", pageURL, "size", len(r.Body))
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		linkURL, err := url.Parse(link)
		if err != nil || linkURL.Host != parsedURL.Host {
			return
		}
		e.Request.Visit(link)
	})

	c.OnError(func(r *colly.Response, err error) {
		slog.Debug("fetch error (continuing)", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(startURL); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to visit %s: %w", startURL, err)
	}
	c.Wait()

	if f.config.OnComplete != nil {
		f.config.OnComplete(events.FetchCompleteEvent{
			SourceURL: startURL,
			PDFsFound: len(pdfs),
			Timestamp: time.Now(),
		})
	}

	if cancelled {
		slog.Info("fetch cancelled by context", "pdfs_fetched", len(pdfs))
		return pdfs, ctx.Err()
	}

	slog.Info("fetch complete", "url", startURL, "pdfs", len(pdfs))
	return pdfs, nil
}

// filenameFor derives an upload filename from a PDF's URL.
func filenameFor(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = u.Hostname()
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
