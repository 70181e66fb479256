package document

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

const siteUserAgent = "docchat/1.0 (+https://github.com/lcrdev/docchat)"

// loadSite fetches a web page and extracts its readable text content.
// Fetching goes through colly (politeness limits from config);
// extraction prefers readability, falling back to stripped body text
// for pages readability cannot parse.
func (l *Loader) loadSite(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return "", fmt.Errorf("%w: invalid URL %q", ErrLoad, rawURL)
	}

	body, err := l.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	text := extractReadable(body, pageURL)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no readable content at %q", ErrLoad, rawURL)
	}
	return text, nil
}

// fetch retrieves the page body with the configured politeness limits.
func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(siteUserAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(time.Duration(l.scraper.TimeoutMs) * time.Millisecond)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: l.scraper.Parallelism,
		Delay:       time.Duration(l.scraper.DelayMs) * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("%w: configuring fetcher: %v", ErrLoad, err)
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	// Honor caller cancellation: colly has no context plumbing on Visit,
	// so check before starting the (synchronous) fetch.
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLoad, ctx.Err())
	default:
	}

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("%w: fetching %q: %v", ErrLoad, rawURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("%w: fetching %q: %v", ErrLoad, rawURL, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response from %q", ErrLoad, rawURL)
	}
	return body, nil
}

// extractReadable extracts article text, preferring readability's
// content extraction and falling back to the raw body text with
// script/style noise removed.
func extractReadable(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		if article.Title != "" {
			return article.Title + "\n\n" + article.TextContent
		}
		return article.TextContent
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return normalizeWhitespace(doc.Find("body").Text())
}

// normalizeWhitespace collapses runs of blank lines and trims each line.
func normalizeWhitespace(s string) string {
	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
