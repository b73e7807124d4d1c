package records

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nodal-works/ferret/backend/internal/util"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

const (
	defaultTimeout = 30 * time.Second

	// transient backend hiccups get one immediate re-attempt; anything
	// beyond that is the discovery loop's skip logic to handle
	searchTries = 2
)

// Client queries the external record-search collaborator.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClientParams configures a record-search Client.
type NewClientParams struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a client for the record-search backend at BaseURL.
func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: params.BaseURL,
		apiKey:  params.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search looks up term in the record store, returning at most limit records.
// An unrecognized response shape yields zero records and no error; transport
// and HTTP failures are returned to the caller to log and skip.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]RawRecord, error) {
	return util.RetryWithContext(ctx, searchTries, func(ctx context.Context) ([]RawRecord, error) {
		return c.search(ctx, term, limit)
	})
}

func (c *Client) search(ctx context.Context, term string, limit int) ([]RawRecord, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}
	q := u.Query()
	q.Set("q", term)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	results, shape, keys := DecodePayload(body)
	if shape == ShapeUnknown {
		logger.Warn("[Records] Unrecognized response shape", "term_len", len(term), "keys", keys)
		return []RawRecord{}, nil
	}

	logger.Debug("[Records] Search completed", "shape", string(shape), "count", len(results))
	return results, nil
}
