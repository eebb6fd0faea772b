// Package marketdata provides a client for the upstream market data API
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "None" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// flexInt64 handles JSON values that may be either a number or a string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexInt64(num)
		return nil
	}
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = flexInt64(fl)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "None" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into int64", string(data))
}

const (
	DefaultBaseURL   = "https://api.marketfeed.io/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new market data client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("market data API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type quoteResponse struct {
	Symbol        string      `json:"symbol"`
	Price         flexFloat64 `json:"price"`
	PreviousClose flexFloat64 `json:"previous_close"`
	Volume        flexInt64   `json:"volume"`
	Timestamp     flexInt64   `json:"timestamp"`
}

// GetQuote retrieves the latest price snapshot for a symbol.
// Change and change percent are derived from the previous close rather
// than trusted from the feed.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var resp quoteResponse
	path := fmt.Sprintf("/quote/%s", url.PathEscape(strings.ToUpper(symbol)))

	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	quote := &models.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         float64(resp.Price),
		PreviousClose: float64(resp.PreviousClose),
		Volume:        int64(resp.Volume),
	}
	if resp.Timestamp > 0 {
		quote.Timestamp = time.Unix(int64(resp.Timestamp), 0).UTC()
	} else {
		quote.Timestamp = time.Now().UTC()
	}
	if quote.PreviousClose > 0 {
		quote.Change = quote.Price - quote.PreviousClose
		quote.ChangePct = quote.Change / quote.PreviousClose * 100
	}

	return quote, nil
}

type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexInt64   `json:"volume"`
}

// GetEOD retrieves end-of-day price history. Bars are returned in
// ascending date order regardless of the order the API sends them in.
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...interfaces.EODOption) ([]models.EODBar, error) {
	params := &interfaces.EODParams{}
	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}
	if params.Limit > 0 {
		urlParams.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp []eodBarResponse
	path := fmt.Sprintf("/eod/%s", url.PathEscape(strings.ToUpper(symbol)))

	if err := c.get(ctx, path, urlParams, &resp); err != nil {
		return nil, fmt.Errorf("failed to get EOD data for %s: %w", symbol, err)
	}

	bars := make([]models.EODBar, 0, len(resp))
	for _, raw := range resp {
		date, err := time.Parse("2006-01-02", raw.Date)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Str("date", raw.Date).Msg("skipping bar with unparseable date")
			continue
		}
		bars = append(bars, models.EODBar{
			Date:     date,
			Open:     float64(raw.Open),
			High:     float64(raw.High),
			Low:      float64(raw.Low),
			Close:    float64(raw.Close),
			AdjClose: float64(raw.AdjustedClose),
			Volume:   int64(raw.Volume),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	return bars, nil
}

type fundamentalsResponse struct {
	General struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Sector      string `json:"sector"`
		Industry    string `json:"industry"`
		Exchange    string `json:"exchange"`
		Description string `json:"description"`
	} `json:"general"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"market_capitalization"`
		PERatio              flexFloat64 `json:"pe_ratio"`
		EarningsShare        flexFloat64 `json:"earnings_share"`
		DividendYield        flexFloat64 `json:"dividend_yield"`
		ReturnOnEquity       flexFloat64 `json:"return_on_equity"`
		ProfitMargin         flexFloat64 `json:"profit_margin"`
		RevenueGrowth        flexFloat64 `json:"revenue_growth"`
		TargetPrice          flexFloat64 `json:"target_price"`
		BookValue            flexFloat64 `json:"book_value"`
	} `json:"highlights"`
	Valuation struct {
		PriceBook flexFloat64 `json:"price_book"`
	} `json:"valuation"`
	Financials struct {
		DebtToEquity flexFloat64 `json:"debt_to_equity"`
		CurrentRatio flexFloat64 `json:"current_ratio"`
	} `json:"financials"`
	Technicals struct {
		Beta flexFloat64 `json:"beta"`
	} `json:"technicals"`
}

// GetFundamentals retrieves fundamental data for a symbol
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	var resp fundamentalsResponse
	path := fmt.Sprintf("/fundamentals/%s", url.PathEscape(strings.ToUpper(symbol)))

	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get fundamentals for %s: %w", symbol, err)
	}

	fundamentals := &models.Fundamentals{
		Symbol:        strings.ToUpper(symbol),
		Name:          resp.General.Name,
		Sector:        resp.General.Sector,
		Industry:      resp.General.Industry,
		Exchange:      resp.General.Exchange,
		Description:   resp.General.Description,
		MarketCap:     float64(resp.Highlights.MarketCapitalization),
		PE:            float64(resp.Highlights.PERatio),
		PB:            float64(resp.Valuation.PriceBook),
		EPS:           float64(resp.Highlights.EarningsShare),
		DividendYield: float64(resp.Highlights.DividendYield),
		Beta:          float64(resp.Technicals.Beta),
		TargetPrice:   float64(resp.Highlights.TargetPrice),
		ROE:           float64(resp.Highlights.ReturnOnEquity),
		DebtToEquity:  float64(resp.Financials.DebtToEquity),
		CurrentRatio:  float64(resp.Financials.CurrentRatio),
		RevenueGrowth: float64(resp.Highlights.RevenueGrowth),
		ProfitMargin:  float64(resp.Highlights.ProfitMargin),
		BookValue:     float64(resp.Highlights.BookValue),
		LastUpdated:   time.Now().UTC(),
	}

	return fundamentals, nil
}

// Ensure Client implements the interface
var _ interfaces.MarketDataClient = (*Client)(nil)
