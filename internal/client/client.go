// Package client is the Go SDK for the quantjobs API. Every operation is a
// single request with no retry: a transport failure surfaces as ErrTransport
// and the caller owns the decision of what happens next.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/pkg/requestid"
)

const requestIDHeader = "X-Request-Id"

type Client struct {
	server string
	http   *http.Client
}

// NewFromConfig returns a new quantjobs API client from the given config.
func NewFromConfig(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	httpClient, err := NewHTTPClientFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	return &Client{server: config.Service.Server, http: httpClient}, nil
}

// NewWithHTTPClient builds a client around an explicit http.Client, used by
// tests running against httptest servers.
func NewWithHTTPClient(server string, httpClient *http.Client) *Client {
	return &Client{server: server, http: httpClient}
}

// SubmitJob enqueues a job. The submission is sent exactly once.
func (c *Client) SubmitJob(ctx context.Context, sub api.JobSubmission) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", nil, sub, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String(), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobsOptions narrows a job listing; zero values mean no filter.
type ListJobsOptions struct {
	ClientID    *uuid.UUID
	PortfolioID *uuid.UUID
}

func (c *Client) ListJobs(ctx context.Context, opts ListJobsOptions) ([]api.Job, error) {
	query := url.Values{}
	if opts.ClientID != nil {
		query.Set("clientId", opts.ClientID.String())
	}
	if opts.PortfolioID != nil {
		query.Set("portfolioId", opts.PortfolioID.String())
	}

	var jobs []api.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs", query, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) JobStats(ctx context.Context) (*api.JobStats, error) {
	var stats api.JobStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// JobPaths fetches a bounded subset of a job's stored simulation paths.
func (c *Client) JobPaths(ctx context.Context, id uuid.UUID, limit, stride int) (*api.PathsResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if stride > 0 {
		query.Set("stride", strconv.Itoa(stride))
	}

	var paths api.PathsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String()+"/paths", query, nil, &paths); err != nil {
		return nil, err
	}
	return &paths, nil
}

func (c *Client) ClientStats(ctx context.Context) (*api.ClientStats, error) {
	var stats api.ClientStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/clients/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) CreateClient(ctx context.Context, form api.ClientForm) (*api.Client, error) {
	var out api.Client
	if err := c.do(ctx, http.MethodPost, "/api/v1/clients", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListClients(ctx context.Context) ([]api.Client, error) {
	var out []api.Client
	if err := c.do(ctx, http.MethodGet, "/api/v1/clients", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePortfolio(ctx context.Context, clientID uuid.UUID, form api.PortfolioForm) (*api.Portfolio, error) {
	var out api.Portfolio
	if err := c.do(ctx, http.MethodPost, "/api/v1/clients/"+clientID.String()+"/portfolios", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpsertAsset(ctx context.Context, portfolioID uuid.UUID, form api.AssetForm) (*api.Asset, error) {
	var out api.Asset
	if err := c.do(ctx, http.MethodPost, "/api/v1/portfolios/"+portfolioID.String()+"/assets", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarketLookup(ctx context.Context, ticker string) (*api.MarketLookup, error) {
	query := url.Values{"ticker": []string{ticker}}
	var out api.MarketLookup
	if err := c.do(ctx, http.MethodGet, "/api/v1/market/lookup", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OptionExpirations(ctx context.Context, ticker string) (*api.OptionExpirations, error) {
	query := url.Values{"ticker": []string{ticker}}
	var out api.OptionExpirations
	if err := c.do(ctx, http.MethodGet, "/api/v1/market/options/expirations", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OptionChain(ctx context.Context, ticker, expiry string) (*api.OptionChain, error) {
	query := url.Values{"ticker": []string{ticker}, "expiry": []string{expiry}}
	var out api.OptionChain
	if err := c.do(ctx, http.MethodGet, "/api/v1/market/options/chain", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		reqID = requestid.Generate()
	}
	req.Header.Set(requestIDHeader, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return NewErrTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ErrAPI{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var reply struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err == nil && reply.Error != "" {
		return reply.Error
	}
	return string(raw)
}
