package allfunds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/epeers/fundsync/internal/util"
	log "github.com/sirupsen/logrus"
)

// Allfunds product API as exposed by the neuralfin gateway. Every endpoint
// answers with an envelope {status, data}.
const defaultBaseURL = "https://api.neuralfin.ai/product/api/v1"

// Client is an HTTP client for the fund data API
type Client struct {
	token       string
	baseURL     string
	httpClient  *http.Client
	concurrency int
	now         func() time.Time
}

// NewClient creates a new fund API client
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, defaultBaseURL)
}

// NewClientWithBaseURL creates a new fund API client with a custom base URL (for testing)
func NewClientWithBaseURL(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		concurrency: 1,
		now:         time.Now,
	}
}

// WithConcurrency sets how many ISINs a batch call fetches at once. Values below 1 mean 1.
func (c *Client) WithConcurrency(n int) *Client {
	if n < 1 {
		n = 1
	}
	c.concurrency = n
	return c
}

// FetchCatalog fetches the full fund catalog. Each element is one raw fund object.
func (c *Client) FetchCatalog(ctx context.Context) ([]Payload, error) {
	const endpoint = "catalog"
	log.Debug("FetchCatalog begins")

	env, err := c.get(ctx, endpoint, "", "/funds/catalog", nil)
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, &FetchError{Kind: ErrUpstreamStatus, Endpoint: endpoint, Status: env.Status}
	}

	var data CatalogData
	if err := decodeJSON(env.Data, &data); err != nil {
		return nil, &FetchError{Kind: ErrDecodeResponse, Endpoint: endpoint, Err: err}
	}

	log.Debugf("FetchCatalog ends: %d funds", len(data.Funds))
	return data.Funds, nil
}

// FetchOverview fetches the overview object for one ISIN.
func (c *Client) FetchOverview(ctx context.Context, isin string) (Payload, error) {
	return c.fetchData(ctx, "overview", isin, "/funds/"+url.PathEscape(isin)+"/overview", nil)
}

// FetchNav fetches close prices for one ISIN between since and until (inclusive).
// A nil until means today.
func (c *Client) FetchNav(ctx context.Context, isin string, since time.Time, until *time.Time) (Payload, error) {
	end := c.now()
	if until != nil {
		end = *until
	}
	params := url.Values{}
	params.Set("since_date", since.Format(util.DateLayout))
	params.Set("until_date", end.Format(util.DateLayout))

	return c.fetchData(ctx, "close_prices", isin, "/funds/"+url.PathEscape(isin)+"/close_prices", params)
}

// FetchPerformance fetches the performance object for one ISIN.
func (c *Client) FetchPerformance(ctx context.Context, isin string) (Payload, error) {
	return c.fetchData(ctx, "performance", isin, "/funds/"+url.PathEscape(isin)+"/performance", nil)
}

// fetchData validates the ISIN, performs the request and returns the envelope's data object.
func (c *Client) fetchData(ctx context.Context, endpoint, isin, path string, params url.Values) (Payload, error) {
	if err := ValidateISIN(isin); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, endpoint, isin, path, params)
	if err != nil {
		return nil, err
	}
	// Single-fund endpoints do not always send a status field.
	if env.Status != "" && env.Status != "success" {
		return nil, &FetchError{Kind: ErrUpstreamStatus, Endpoint: endpoint, ISIN: isin, Status: env.Status}
	}

	var data Payload
	if err := decodeJSON(env.Data, &data); err != nil {
		return nil, &FetchError{Kind: ErrDecodeResponse, Endpoint: endpoint, ISIN: isin, Err: err}
	}
	if data == nil {
		return nil, &FetchError{Kind: ErrDecodeResponse, Endpoint: endpoint, ISIN: isin,
			Err: fmt.Errorf("response has no data object")}
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, endpoint, isin, path string, params url.Values) (*Envelope, error) {
	body, err := c.doRequest(ctx, endpoint, isin, path, params)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := decodeJSON(body, &env); err != nil {
		return nil, &FetchError{Kind: ErrDecodeResponse, Endpoint: endpoint, ISIN: isin, Err: err}
	}
	return &env, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint, isin, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrTransport, Endpoint: endpoint, ISIN: isin,
			Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: ErrTransport, Endpoint: endpoint, ISIN: isin, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: ErrHTTPStatus, Endpoint: endpoint, ISIN: isin, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrTransport, Endpoint: endpoint, ISIN: isin,
			Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}

// decodeJSON keeps numbers as json.Number so the normalizer decides their precision.
func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
