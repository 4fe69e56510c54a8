package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/marigold/pkg/httpclient"
	"github.com/Ramsey-B/marigold/pkg/metrics"
	"github.com/Ramsey-B/marigold/pkg/tracing"
)

const (
	// DefaultPageSize is the per-page row limit requested from the API
	DefaultPageSize = 500

	// DefaultMaxPages bounds a single fetch against a misbehaving upstream.
	// It is a worst-case guard, not an expected page count.
	DefaultMaxPages = 50
)

// Config holds Graph API client configuration
type Config struct {
	BaseURL  string
	Version  string
	PageSize int
	MaxPages int
}

// Client talks to the Meta Graph API
type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

// NewClient creates a new Graph API client
func NewClient(http *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://graph.facebook.com"
	}
	if config.Version == "" {
		config.Version = "v20.0"
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	return &Client{
		http:   http,
		config: config,
		logger: logger,
	}
}

// FetchInsights walks the campaign-level daily insights for an account over
// the inclusive [since, until] window, following paging.next until the cursor
// is absent or the page guard trips. Any non-2xx response aborts the whole
// fetch; pages already read are discarded by the caller.
func (c *Client) FetchInsights(ctx context.Context, accessToken, accountExternalID string, since, until time.Time) ([]InsightRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "MetaClient.FetchInsights")
	defer span.End()

	query := url.Values{}
	query.Set("level", "campaign")
	query.Set("time_increment", "1")
	query.Set("fields", "campaign_id,campaign_name,spend,impressions,clicks")
	query.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		since.Format("2006-01-02"), until.Format("2006-01-02")))
	query.Set("limit", fmt.Sprintf("%d", c.config.PageSize))
	query.Set("access_token", accessToken)

	next := fmt.Sprintf("%s/%s/%s/insights?%s",
		c.config.BaseURL, c.config.Version, accountExternalID, query.Encode())

	var records []InsightRecord
	pages := 0

	for next != "" && pages < c.config.MaxPages {
		var page insightsResponse
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}

		records = append(records, page.Data...)
		next = page.Paging.Next
		pages++
	}

	if next != "" {
		c.logger.WithContext(ctx).Warnf("Insights pagination stopped at page guard (%d pages), results truncated", pages)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"account_external_id": accountExternalID,
		"pages":               pages,
		"records":             len(records),
	}).Debug("fetched insights")

	return records, nil
}

// ListAdAccounts lists the ad accounts visible to the token's user
func (c *Client) ListAdAccounts(ctx context.Context, accessToken string) ([]AdAccountRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "MetaClient.ListAdAccounts")
	defer span.End()

	query := url.Values{}
	query.Set("fields", "id,name,account_status")
	query.Set("limit", fmt.Sprintf("%d", c.config.PageSize))
	query.Set("access_token", accessToken)

	next := fmt.Sprintf("%s/%s/me/adaccounts?%s", c.config.BaseURL, c.config.Version, query.Encode())

	var accounts []AdAccountRecord
	pages := 0

	for next != "" && pages < c.config.MaxPages {
		var page adAccountsResponse
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}

		accounts = append(accounts, page.Data...)
		next = page.Paging.Next
		pages++
	}

	return accounts, nil
}

// getJSON performs one API round trip. A non-2xx status aborts with the
// upstream error.message preserved verbatim.
func (c *Client) getJSON(ctx context.Context, requestURL string, dest any) error {
	resp, err := c.http.Get(ctx, requestURL, nil)
	if err != nil {
		metrics.GraphAPIRequests.WithLabelValues("error").Inc()
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.GraphAPIRequests.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

		var errBody errorResponse
		if jsonErr := json.Unmarshal(resp.Body, &errBody); jsonErr == nil && errBody.Error.Message != "" {
			return fmt.Errorf("graph api error (status %d): %s", resp.StatusCode, errBody.Error.Message)
		}
		return fmt.Errorf("graph api error (status %d)", resp.StatusCode)
	}

	metrics.GraphAPIRequests.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("failed to decode graph api response: %w", err)
	}

	return nil
}
