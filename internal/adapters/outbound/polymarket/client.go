package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// Dota 2 series on the Gamma API.
const dota2SeriesID = "10309"

// Client fetches moneyline markets from the Polymarket Gamma API.
// The API is a two-level hierarchy: a series lists event IDs, each
// event lists its markets.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type seriesResponse struct {
	Events []seriesEvent `json:"events"`
}

type seriesEvent struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
	Closed bool   `json:"closed"`
}

type eventResponse struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Active  bool             `json:"active"`
	Closed  bool             `json:"closed"`
	Markets []marketResponse `json:"markets"`
}

// marketResponse is one market inside an event. Outcomes and
// OutcomePrices are JSON-encoded arrays nested inside strings.
type marketResponse struct {
	ConditionID      string   `json:"conditionId"`
	Question         string   `json:"question"`
	Outcomes         string   `json:"outcomes"`
	OutcomePrices    string   `json:"outcomePrices"`
	Liquidity        *string  `json:"liquidity"`
	LiquidityNum     *float64 `json:"liquidityNum"`
	Active           bool     `json:"active"`
	Closed           bool     `json:"closed"`
	EndDateISO       *string  `json:"endDateIso"`
	SportsMarketType string   `json:"sportsMarketType"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, url: url, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FetchDota2Markets returns all active moneyline markets in the Dota 2
// series. A non-2xx on the series request is an answer from the API and
// yields an empty set; transport and decode failures are errors so the
// scanner can keep its previous market set. A failed event fetch skips
// that event only.
func (c *Client) FetchDota2Markets(ctx context.Context) ([]models.PolymarketMarket, error) {
	seriesURL := fmt.Sprintf("%s/series/%s", c.baseURL, dota2SeriesID)
	telemetry.Debugf("Fetching Dota 2 series from: %s", seriesURL)

	var series seriesResponse
	if err := c.getJSON(ctx, seriesURL, &series); err != nil {
		if httpStatus(err) != 0 {
			telemetry.Warnf("Series %s request rejected: %v", dota2SeriesID, err)
			return []models.PolymarketMarket{}, nil
		}
		return nil, fmt.Errorf("fetch series %s: %w", dota2SeriesID, err)
	}

	var markets []models.PolymarketMarket
	for _, event := range series.Events {
		if !event.Active || event.Closed {
			continue
		}
		eventMarkets, err := c.fetchEventMarkets(ctx, event.ID)
		if err != nil {
			telemetry.Warnf("Failed to fetch event %s: %v", event.ID, err)
			continue
		}
		markets = append(markets, eventMarkets...)
	}

	telemetry.Infof("Total active Dota 2 markets found: %d", len(markets))
	return markets, nil
}

func (c *Client) fetchEventMarkets(ctx context.Context, eventID string) ([]models.PolymarketMarket, error) {
	url := fmt.Sprintf("%s/events/%s", c.baseURL, eventID)

	var event eventResponse
	if err := c.getJSON(ctx, url, &event); err != nil {
		return nil, err
	}

	if !event.Active || event.Closed {
		return nil, nil
	}

	var markets []models.PolymarketMarket
	for _, m := range event.Markets {
		if m.SportsMarketType != "moneyline" || !m.Active || m.Closed {
			continue
		}
		pm, ok := convertMarket(m)
		if !ok {
			continue
		}
		telemetry.Infof("Found market: %s vs %s (odds: %.0f%% / %.0f%%)",
			pm.TeamA, pm.TeamB, pm.TeamAOdds*100, pm.TeamBOdds*100)
		markets = append(markets, pm)
	}
	return markets, nil
}

// convertMarket decodes the string-nested outcome arrays and the
// liquidity/end-date fallback chains. Markets that do not decode to
// exactly two priced outcomes are dropped.
func convertMarket(m marketResponse) (models.PolymarketMarket, bool) {
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return models.PolymarketMarket{}, false
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return models.PolymarketMarket{}, false
	}
	if len(outcomes) != 2 || len(prices) != 2 {
		return models.PolymarketMarket{}, false
	}

	teamAOdds, errA := strconv.ParseFloat(prices[0], 64)
	teamBOdds, errB := strconv.ParseFloat(prices[1], 64)
	if errA != nil || errB != nil {
		return models.PolymarketMarket{}, false
	}
	if teamAOdds < 0 || teamAOdds > 1 || teamBOdds < 0 || teamBOdds > 1 {
		return models.PolymarketMarket{}, false
	}

	return models.PolymarketMarket{
		ConditionID: m.ConditionID,
		Question:    m.Question,
		TeamA:       strings.TrimSpace(outcomes[0]),
		TeamB:       strings.TrimSpace(outcomes[1]),
		TeamAOdds:   teamAOdds,
		TeamBOdds:   teamBOdds,
		Liquidity:   decodeLiquidity(m),
		EndDate:     decodeEndDate(m.EndDateISO),
		Active:      m.Active && !m.Closed,
	}, true
}

// statusError is a non-2xx response; httpStatus recovers the code.
type statusError struct {
	status int
	url    string
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("polymarket: %s -> %d: %s", e.url, e.status, e.body)
}

func httpStatus(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

func decodeLiquidity(m marketResponse) float64 {
	if m.LiquidityNum != nil {
		return *m.LiquidityNum
	}
	if m.Liquidity != nil {
		if v, err := strconv.ParseFloat(*m.Liquidity, 64); err == nil {
			return v
		}
	}
	return 0
}

// decodeEndDate accepts RFC 3339 first, then a bare date at midnight UTC.
func decodeEndDate(iso *string) *time.Time {
	if iso == nil || *iso == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, *iso); err == nil {
		utc := t.UTC()
		return &utc
	}
	if t, err := time.Parse("2006-01-02", *iso); err == nil {
		utc := t.UTC()
		return &utc
	}
	return nil
}
