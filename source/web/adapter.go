// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package web implements the post source adapter: a paginated listing
// crawl with concurrent detail-page fetches. One unreadable detail
// page skips that post; an unreachable listing aborts the run.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/archivemind/corpora/core"
	"github.com/archivemind/corpora/source"
)

const (
	defaultUserAgent      = "corpora-ingest/1.0"
	defaultRequestTimeout = 30 * time.Second
	defaultFetchBatch     = 5
	defaultRequestsPerSec = 4
	defaultMaxPages       = 50
)

// ErrNoContent indicates a detail page without a recognizable content container.
var ErrNoContent = errors.New("no content container found")

// Config controls the post adapter.
type Config struct {
	// BaseURL is the site root, e.g. "https://example.org".
	BaseURL string
	// ListPath is the listing path relative to BaseURL. Default "/posts".
	ListPath string
	// ItemClass marks listing elements that contain one post link. Default "post".
	ItemClass string
	// ContentClass marks the detail-page text container. Default "content".
	ContentClass string
	// TagClass marks tag elements on the detail page. Default "tag".
	TagClass string
	// UserAgent sent on every request.
	UserAgent string
	// RequestTimeout per HTTP request.
	RequestTimeout time.Duration
	// FetchBatch is how many detail pages are fetched concurrently. Default 5.
	FetchBatch int
	// RequestsPerSecond paces all requests. Default 4.
	RequestsPerSecond float64
	// MaxPages bounds the listing crawl. Default 50.
	MaxPages int
}

func (c *Config) setDefaults() error {
	if c.BaseURL == "" {
		return errors.New("web adapter: BaseURL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("web adapter: invalid BaseURL: %w", err)
	}
	if c.ListPath == "" {
		c.ListPath = "/posts"
	}
	if c.ItemClass == "" {
		c.ItemClass = "post"
	}
	if c.ContentClass == "" {
		c.ContentClass = "content"
	}
	if c.TagClass == "" {
		c.TagClass = "tag"
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.FetchBatch <= 0 {
		c.FetchBatch = defaultFetchBatch
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerSec
	}
	if c.MaxPages <= 0 {
		c.MaxPages = defaultMaxPages
	}
	return nil
}

// Adapter crawls a post listing site.
type Adapter struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ source.Adapter = (*Adapter)(nil)

// New creates a post adapter for the configured site.
func New(cfg Config) (*Adapter, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return &Adapter{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  slog.Default().With("component", "web-adapter"),
	}, nil
}

// Modality identifies this adapter's corpus.
func (a *Adapter) Modality() core.Modality {
	return core.ModalityPost
}

// listing is one post reference scraped from a listing page.
type listing struct {
	url   string
	title string
}

// Fetch walks listing pages and yields one raw document per post.
// Detail pages are fetched in batches of FetchBatch; a failed detail
// fetch yields a per-item error, a failed listing fetch yields a
// *core.FetchError and stops.
func (a *Adapter) Fetch(ctx context.Context) iter.Seq2[*source.RawDocument, error] {
	return func(yield func(*source.RawDocument, error) bool) {
		pageURL := a.cfg.BaseURL + a.cfg.ListPath
		seen := make(map[string]bool)

		for page := 0; page < a.cfg.MaxPages && pageURL != ""; page++ {
			items, next, err := a.fetchListing(ctx, pageURL)
			if err != nil {
				yield(nil, &core.FetchError{Modality: core.ModalityPost, Err: err})
				return
			}
			a.logger.Debug("fetched listing page", "url", pageURL, "items", len(items))

			// Drop links already crawled this run.
			fresh := items[:0]
			for _, item := range items {
				if !seen[item.url] {
					seen[item.url] = true
					fresh = append(fresh, item)
				}
			}

			for start := 0; start < len(fresh); start += a.cfg.FetchBatch {
				end := start + a.cfg.FetchBatch
				if end > len(fresh) {
					end = len(fresh)
				}
				for _, result := range a.fetchBatch(ctx, fresh[start:end]) {
					if !yield(result.doc, result.err) {
						return
					}
				}
			}

			pageURL = next
		}
	}
}

type fetchResult struct {
	doc *source.RawDocument
	err error
}

// fetchBatch fetches one batch of detail pages concurrently, keeping
// input order in the results.
func (a *Adapter) fetchBatch(ctx context.Context, items []listing) []fetchResult {
	results := make([]fetchResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			doc, err := a.fetchDetail(gctx, item)
			if err != nil {
				results[i] = fetchResult{err: fmt.Errorf("post %s: %w", item.url, err)}
				return nil
			}
			results[i] = fetchResult{doc: doc}
			return nil
		})
	}
	g.Wait()
	return results
}

// fetchListing retrieves one listing page and returns its post links
// plus the next page URL, if any.
func (a *Adapter) fetchListing(ctx context.Context, pageURL string) ([]listing, string, error) {
	root, err := a.get(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}

	var items []listing
	for _, node := range findAllByClass(root, a.cfg.ItemClass) {
		anchor := findFirstAnchor(node)
		if anchor == nil {
			continue
		}
		href := attrValue(anchor, "href")
		if href == "" {
			continue
		}
		items = append(items, listing{
			url:   a.resolveURL(pageURL, href),
			title: nodeText(anchor),
		})
	}

	next := ""
	if anchor := findNextLink(root); anchor != nil {
		if href := attrValue(anchor, "href"); href != "" {
			next = a.resolveURL(pageURL, href)
		}
	}
	return items, next, nil
}

// fetchDetail retrieves one post's detail page and extracts its text.
func (a *Adapter) fetchDetail(ctx context.Context, item listing) (*source.RawDocument, error) {
	root, err := a.get(ctx, item.url)
	if err != nil {
		return nil, err
	}

	container := findByClass(root, a.cfg.ContentClass)
	if container == nil {
		return nil, ErrNoContent
	}

	title := item.title
	if h1 := findByTag(root, "h1"); h1 != nil {
		title = nodeText(h1)
	}

	var tags []string
	for _, node := range findAllByClass(root, a.cfg.TagClass) {
		if tag := nodeText(node); tag != "" {
			tags = append(tags, tag)
		}
	}

	return &source.RawDocument{
		Source:    item.url,
		Title:     title,
		Tags:      tags,
		Text:      blockText(container),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// get performs one paced HTTP GET and parses the body as HTML.
func (a *Adapter) get(ctx context.Context, rawURL string) (*html.Node, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	return html.Parse(resp.Body)
}

func (a *Adapter) resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
