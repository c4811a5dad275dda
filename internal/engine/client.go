// Package engine implements the outbound client for the trading engine API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TradeKind selects the engine endpoint a trade is posted to.
type TradeKind string

const (
	Buy    TradeKind = "buy"
	Sell   TradeKind = "sell"
	BuyMF  TradeKind = "buy_mf"
	SellMF TradeKind = "sell_mf"
)

func (k TradeKind) valid() bool {
	switch k {
	case Buy, Sell, BuyMF, SellMF:
		return true
	}
	return false
}

// ErrValidation marks input rejected before any request is sent.
var ErrValidation = errors.New("invalid input")

// APIError carries the engine's failure detail; Error returns exactly the
// detail string so callers can surface it verbatim.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string { return e.Detail }

type Result struct {
	Message string `json:"message"`
}

type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type tradeRequest struct {
	UserID   string `json:"user_id"`
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

type fdRequest struct {
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	DurationMonths int     `json:"duration_months"`
}

type apiDetail struct {
	Detail string `json:"detail"`
}

type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// NewClient initializes a resty client against the engine base URL. Every
// request carries the per-call context plus the client-level timeout.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	rc := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
	return &Client{http: rc, log: log}
}

// PlaceTrade executes a buy/sell for stocks or mutual funds. The symbol is
// upper-cased and the quantity parsed before transmission; malformed numeric
// input is rejected here rather than forwarded.
func (c *Client) PlaceTrade(ctx context.Context, kind TradeKind, userID, symbol, quantity string) (*Result, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown trade kind %q: %w", kind, ErrValidation)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(quantity))
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", quantity, ErrValidation)
	}

	body := tradeRequest{
		UserID:   userID,
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Quantity: qty,
	}
	var out Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiDetail{}).
		Post("/" + string(kind))
	if err != nil {
		c.log.Error("engine trade request failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	if resp.IsError() {
		return nil, normalizeError(resp, "Trade failed")
	}
	return &out, nil
}

// CreateFixedDeposit opens a fixed deposit for the user.
func (c *Client) CreateFixedDeposit(ctx context.Context, userID, amount, durationMonths string) (*Result, error) {
	amt, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, ErrValidation)
	}
	months, err := strconv.Atoi(strings.TrimSpace(durationMonths))
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", durationMonths, ErrValidation)
	}

	body := fdRequest{UserID: userID, Amount: amt, DurationMonths: months}
	var out Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiDetail{}).
		Post("/create_fd")
	if err != nil {
		c.log.Error("engine fd request failed", zap.Error(err))
		return nil, err
	}
	if resp.IsError() {
		return nil, normalizeError(resp, "FD creation failed")
	}
	return &out, nil
}

// GetQuote fetches the live price for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var out Quote
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiDetail{}).
		SetPathParam("symbol", strings.ToUpper(strings.TrimSpace(symbol))).
		Get("/price/{symbol}")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, normalizeError(resp, "Quote unavailable")
	}
	return &out, nil
}

func normalizeError(resp *resty.Response, generic string) error {
	detail := generic
	if e, ok := resp.Error().(*apiDetail); ok && e.Detail != "" {
		detail = e.Detail
	}
	return &APIError{Status: resp.StatusCode(), Detail: detail}
}
