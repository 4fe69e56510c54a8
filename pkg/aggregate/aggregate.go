// Package aggregate computes report metrics from daily fact rows. Everything
// here is pure: no storage, no clock beyond the caller-supplied window.
package aggregate

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/marigold/pkg/models"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// Totals holds summed measures and their derived ratios.
type Totals struct {
	Spend       decimal.Decimal `json:"spend"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	CTR         decimal.Decimal `json:"ctr"`
	CPC         decimal.Decimal `json:"cpc"`
	CPM         decimal.Decimal `json:"cpm"`
}

// DayPoint is one day in a zero-filled series.
type DayPoint struct {
	Day         string          `json:"day"`
	Spend       decimal.Decimal `json:"spend"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
}

// EntityTotals is a per-entity aggregate row.
type EntityTotals struct {
	ID uuid.UUID `json:"id"`
	Totals
}

// CTR is clicks/impressions as a percentage, zero when there are no impressions.
func CTR(clicks, impressions int64) decimal.Decimal {
	if impressions == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(clicks).Div(decimal.NewFromInt(impressions)).Mul(hundred)
}

// CPC is spend per click, zero when there are no clicks.
func CPC(spend decimal.Decimal, clicks int64) decimal.Decimal {
	if clicks == 0 {
		return decimal.Zero
	}
	return spend.Div(decimal.NewFromInt(clicks))
}

// CPM is spend per thousand impressions, zero when there are no impressions.
func CPM(spend decimal.Decimal, impressions int64) decimal.Decimal {
	if impressions == 0 {
		return decimal.Zero
	}
	return spend.Div(decimal.NewFromInt(impressions)).Mul(thousand)
}

// SumTotals sums all rows and derives the ratios.
func SumTotals(insights []models.CampaignInsight) Totals {
	t := Totals{Spend: decimal.Zero}
	for _, row := range insights {
		t.Spend = t.Spend.Add(row.Spend)
		t.Impressions += row.Impressions
		t.Clicks += row.Clicks
	}
	return withRatios(t)
}

// ByCampaign aggregates rows per campaign, sorted by spend descending.
func ByCampaign(insights []models.CampaignInsight) []EntityTotals {
	return byEntity(insights, func(row models.CampaignInsight) uuid.UUID {
		return row.CampaignID
	})
}

// ByAccount aggregates rows per ad account, sorted by spend descending.
func ByAccount(insights []models.CampaignInsight) []EntityTotals {
	return byEntity(insights, func(row models.CampaignInsight) uuid.UUID {
		return row.AdAccountID
	})
}

func byEntity(insights []models.CampaignInsight, key func(models.CampaignInsight) uuid.UUID) []EntityTotals {
	grouped := make(map[uuid.UUID]Totals)
	for _, row := range insights {
		t, ok := grouped[key(row)]
		if !ok {
			t = Totals{Spend: decimal.Zero}
		}
		t.Spend = t.Spend.Add(row.Spend)
		t.Impressions += row.Impressions
		t.Clicks += row.Clicks
		grouped[key(row)] = t
	}

	result := make([]EntityTotals, 0, len(grouped))
	for id, t := range grouped {
		result = append(result, EntityTotals{ID: id, Totals: withRatios(t)})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Spend.Equal(result[j].Spend) {
			return result[i].Spend.GreaterThan(result[j].Spend)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return result
}

// DaySeries buckets rows into one point per calendar day over the inclusive
// [since, until] window. Days with no rows appear with zero measures.
func DaySeries(insights []models.CampaignInsight, since, until time.Time) []DayPoint {
	since = truncateDay(since)
	until = truncateDay(until)
	if until.Before(since) {
		return nil
	}

	index := make(map[string]int)
	var series []DayPoint
	for day := since; !day.After(until); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		index[key] = len(series)
		series = append(series, DayPoint{Day: key, Spend: decimal.Zero})
	}

	for _, row := range insights {
		key := row.Day.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		series[i].Spend = series[i].Spend.Add(row.Spend)
		series[i].Impressions += row.Impressions
		series[i].Clicks += row.Clicks
	}

	return series
}

// Window returns the inclusive [since, until] wall-clock date range for a
// lookback of days ending today: since = today-(days-1), until = today.
func Window(now time.Time, days int) (since, until time.Time) {
	until = truncateDay(now)
	since = until.AddDate(0, 0, -(days - 1))
	return since, until
}

// ClampDays clamps a lookback request to [1, max], substituting def when the
// request is zero.
func ClampDays(days, def, max int) int {
	if days == 0 {
		days = def
	}
	if days < 1 {
		days = 1
	}
	if days > max {
		days = max
	}
	return days
}

func withRatios(t Totals) Totals {
	t.CTR = CTR(t.Clicks, t.Impressions)
	t.CPC = CPC(t.Spend, t.Clicks)
	t.CPM = CPM(t.Spend, t.Impressions)
	return t
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
