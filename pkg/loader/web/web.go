package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 8 << 20

// Loader fetches a URL and extracts readable text. HTML pages go through
// readability so navigation chrome does not pollute entity extraction;
// anything else is returned as-is. Fetches are cached per URL and collapsed
// with singleflight so concurrent extractions of the same page hit the
// network once.
type Loader struct {
	httpClient *http.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewLoader creates a web loader with a 30 second fetch timeout.
func NewLoader() *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      make(map[string][]byte),
	}
}

// FetchText fetches rawURL and returns its readable text content.
func (l *Loader) FetchText(ctx context.Context, rawURL string) ([]byte, error) {
	l.cacheMu.RLock()
	if cached, ok := l.cache[rawURL]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(rawURL, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[rawURL]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		text, err := l.fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[rawURL] = text
		l.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse url: %w", err)
		}
		article, err := readability.FromReader(body, u)
		if err != nil {
			return nil, fmt.Errorf("failed to parse html: %w", err)
		}
		var builder strings.Builder
		if err := article.RenderText(&builder); err != nil {
			return nil, fmt.Errorf("failed to render article text: %w", err)
		}
		return []byte(builder.String()), nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return data, nil
}
