package meta

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// AdAccountRecord is one entry from /me/adaccounts
type AdAccountRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountStatus int    `json:"account_status"`
}

// StatusLabel maps the numeric account_status code to its name. Unknown codes
// come back as the raw number.
func (r AdAccountRecord) StatusLabel() string {
	switch r.AccountStatus {
	case 1:
		return "ACTIVE"
	case 2:
		return "DISABLED"
	case 3:
		return "UNSETTLED"
	case 7:
		return "PENDING_RISK_REVIEW"
	case 8:
		return "PENDING_SETTLEMENT"
	case 9:
		return "IN_GRACE_PERIOD"
	case 100:
		return "PENDING_CLOSURE"
	case 101:
		return "CLOSED"
	case 201:
		return "ANY_ACTIVE"
	case 202:
		return "ANY_CLOSED"
	default:
		return strconv.Itoa(r.AccountStatus)
	}
}

// InsightRecord is one campaign/day row from the insights endpoint. The Graph
// API returns every measure as a string.
type InsightRecord struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Spend        string `json:"spend"`
	Impressions  string `json:"impressions"`
	Clicks       string `json:"clicks"`
	DateStart    string `json:"date_start"`
	DateStop     string `json:"date_stop"`
}

// SpendValue parses the spend measure; a malformed value is zero, never an error.
func (r InsightRecord) SpendValue() decimal.Decimal {
	d, err := decimal.NewFromString(r.Spend)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ImpressionsValue parses the impressions measure, zero on malformed input.
func (r InsightRecord) ImpressionsValue() int64 {
	return parseCount(r.Impressions)
}

// ClicksValue parses the clicks measure, zero on malformed input.
func (r InsightRecord) ClicksValue() int64 {
	return parseCount(r.Clicks)
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type paging struct {
	Next string `json:"next"`
}

type insightsResponse struct {
	Data   []InsightRecord `json:"data"`
	Paging paging          `json:"paging"`
}

type adAccountsResponse struct {
	Data   []AdAccountRecord `json:"data"`
	Paging paging            `json:"paging"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}
