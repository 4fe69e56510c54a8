package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/pkg/httpclient"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newTestClient(serverURL string, maxPages int) *Client {
	logger := getTestLogger()
	httpClient := httpclient.NewClient(httpclient.Config{Timeout: 5 * time.Second}, logger)
	return NewClient(httpClient, Config{
		BaseURL:  serverURL,
		Version:  "v20.0",
		PageSize: 100,
		MaxPages: maxPages,
	}, logger)
}

func window() (time.Time, time.Time) {
	since, _ := time.Parse("2006-01-02", "2026-03-01")
	until, _ := time.Parse("2006-01-02", "2026-03-07")
	return since, until
}

func TestFetchInsightsSinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/act_123/insights", r.URL.Path)
		assert.Equal(t, "campaign", r.URL.Query().Get("level"))
		assert.Equal(t, "1", r.URL.Query().Get("time_increment"))
		assert.Equal(t, "secret-token", r.URL.Query().Get("access_token"))
		assert.Equal(t, `{"since":"2026-03-01","until":"2026-03-07"}`, r.URL.Query().Get("time_range"))

		_ = json.NewEncoder(w).Encode(insightsResponse{
			Data: []InsightRecord{
				{CampaignID: "c1", CampaignName: "Spring Sale", Spend: "10.50", Impressions: "1000", Clicks: "50", DateStart: "2026-03-01", DateStop: "2026-03-01"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	since, until := window()

	records, err := client.FetchInsights(context.Background(), "secret-token", "act_123", since, until)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].CampaignID)
	assert.Equal(t, "Spring Sale", records[0].CampaignName)
}

func TestFetchInsightsFollowsPagingCursor(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := insightsResponse{
			Data: []InsightRecord{{CampaignID: fmt.Sprintf("c%d", calls), DateStart: "2026-03-01"}},
		}
		if calls < 3 {
			resp.Paging.Next = server.URL + fmt.Sprintf("/v20.0/act_123/insights?page=%d", calls+1)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	since, until := window()

	records, err := client.FetchInsights(context.Background(), "token", "act_123", since, until)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, records, 3)
	assert.Equal(t, "c1", records[0].CampaignID)
	assert.Equal(t, "c3", records[2].CampaignID)
}

func TestFetchInsightsStopsAtPageGuard(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Always advertises another page.
		_ = json.NewEncoder(w).Encode(insightsResponse{
			Data:   []InsightRecord{{CampaignID: "c1", DateStart: "2026-03-01"}},
			Paging: paging{Next: server.URL + "/v20.0/act_123/insights?again=1"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	since, until := window()

	records, err := client.FetchInsights(context.Background(), "token", "act_123", since, until)
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Len(t, records, 5)
}

func TestFetchInsightsPreservesUpstreamErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Error: apiError{Message: "(#17) User request limit reached", Type: "OAuthException", Code: 17},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	since, until := window()

	records, err := client.FetchInsights(context.Background(), "token", "act_123", since, until)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "(#17) User request limit reached")
	assert.Contains(t, err.Error(), "400")
}

func TestFetchInsightsErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	since, until := window()

	_, err := client.FetchInsights(context.Background(), "token", "act_123", since, until)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFetchInsightsAbortsMidPagination(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: apiError{Message: "service unavailable"}})
			return
		}
		_ = json.NewEncoder(w).Encode(insightsResponse{
			Data:   []InsightRecord{{CampaignID: "c1", DateStart: "2026-03-01"}},
			Paging: paging{Next: server.URL + "/v20.0/act_123/insights?page=2"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	since, until := window()

	records, err := client.FetchInsights(context.Background(), "token", "act_123", since, until)
	require.Error(t, err)
	// Pages already read are discarded.
	assert.Nil(t, records)
}

func TestListAdAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/me/adaccounts", r.URL.Path)
		assert.Equal(t, "id,name,account_status", r.URL.Query().Get("fields"))

		_ = json.NewEncoder(w).Encode(adAccountsResponse{
			Data: []AdAccountRecord{
				{ID: "act_1", Name: "Main", AccountStatus: 1},
				{ID: "act_2", Name: "Backup", AccountStatus: 101},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)

	accounts, err := client.ListAdAccounts(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "ACTIVE", accounts[0].StatusLabel())
	assert.Equal(t, "CLOSED", accounts[1].StatusLabel())
}

func TestInsightRecordMeasureCoercion(t *testing.T) {
	rec := InsightRecord{Spend: "12.34", Impressions: "1000", Clicks: "42"}
	assert.True(t, decimal.NewFromFloat(12.34).Equal(rec.SpendValue()))
	assert.Equal(t, int64(1000), rec.ImpressionsValue())
	assert.Equal(t, int64(42), rec.ClicksValue())
}

func TestInsightRecordMalformedMeasuresAreZero(t *testing.T) {
	rec := InsightRecord{Spend: "not-a-number", Impressions: "", Clicks: "12.5"}
	assert.True(t, decimal.Zero.Equal(rec.SpendValue()))
	assert.Equal(t, int64(0), rec.ImpressionsValue())
	assert.Equal(t, int64(0), rec.ClicksValue())
}
