package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"ConfluenceTrader/internal/model"
)

// HTTPBridge implements Broker against a terminal bridge exposing the
// terminal API as JSON over HTTP.
type HTTPBridge struct {
	BaseURL string
	Token   string
	Login   int64
	Server  string
	Client  *http.Client
}

// NewHTTPBridge creates a bridge client with optional proxy support.
func NewHTTPBridge(baseURL, token string, login int64, server, proxyURL string) *HTTPBridge {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPBridge{
		BaseURL: baseURL,
		Token:   token,
		Login:   login,
		Server:  server,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (b *HTTPBridge) Name() string { return "bridge" }

// bridgeError is the error body returned by the bridge.
type bridgeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bridgeBar is the JSON shape of one rate row.
type bridgeBar struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume float64 `json:"tick_volume"`
	RealVolume float64 `json:"real_volume"`
}

type bridgeTick struct {
	Time int64   `json:"time"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

// Connect opens a terminal session.
func (b *HTTPBridge) Connect(ctx context.Context) error {
	body := map[string]any{"login": b.Login, "server": b.Server}
	return b.do(ctx, "connect", http.MethodPost, "/api/v1/session", body, nil)
}

// Close releases the terminal session.
func (b *HTTPBridge) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.do(ctx, "disconnect", http.MethodDelete, "/api/v1/session", nil, nil)
}

func (b *HTTPBridge) Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	q := url.Values{"symbol": {symbol}, "timeframe": {string(tf)}, "count": {strconv.Itoa(count)}}
	var rows []bridgeBar
	if err := b.do(ctx, "copy_rates", http.MethodGet, "/api/v1/rates?"+q.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		vol := r.RealVolume
		if vol == 0 {
			vol = r.TickVolume
		}
		bars[i] = model.Bar{
			Time:   time.Unix(r.Time, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: vol,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (b *HTTPBridge) Tick(ctx context.Context, symbol string) (model.Tick, error) {
	var t bridgeTick
	if err := b.do(ctx, "symbol_info_tick", http.MethodGet, "/api/v1/tick?symbol="+url.QueryEscape(symbol), nil, &t); err != nil {
		return model.Tick{}, err
	}
	return model.Tick{Time: time.Unix(t.Time, 0).UTC(), Bid: t.Bid, Ask: t.Ask}, nil
}

func (b *HTTPBridge) Account(ctx context.Context) (model.Account, error) {
	var a model.Account
	err := b.do(ctx, "account_info", http.MethodGet, "/api/v1/account", nil, &a)
	return a, err
}

func (b *HTTPBridge) Symbol(ctx context.Context, symbol string) (model.SymbolInfo, error) {
	var s model.SymbolInfo
	err := b.do(ctx, "symbol_info", http.MethodGet, "/api/v1/symbols/"+url.PathEscape(symbol), nil, &s)
	return s, err
}

func (b *HTTPBridge) Positions(ctx context.Context, symbol string) ([]model.Position, error) {
	path := "/api/v1/positions"
	if symbol != "" {
		path += "?symbol=" + url.QueryEscape(symbol)
	}
	var ps []model.Position
	if err := b.do(ctx, "positions_get", http.MethodGet, path, nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (b *HTTPBridge) PositionByTicket(ctx context.Context, ticket int64) (model.Position, error) {
	var p model.Position
	err := b.do(ctx, "positions_get", http.MethodGet, "/api/v1/positions/"+strconv.FormatInt(ticket, 10), nil, &p)
	return p, err
}

func (b *HTTPBridge) CheckOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	var r model.OrderResult
	err := b.do(ctx, "order_check", http.MethodPost, "/api/v1/orders/check", req, &r)
	return r, err
}

func (b *HTTPBridge) SendOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	var r model.OrderResult
	err := b.do(ctx, "order_send", http.MethodPost, "/api/v1/orders", req, &r)
	return r, err
}

func (b *HTTPBridge) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		var be bridgeError
		if json.Unmarshal(data, &be) == nil && be.Code != 0 {
			return &model.BrokerError{Op: op, Code: be.Code, Comment: be.Message}
		}
		return &model.BrokerError{Op: op, Code: resp.StatusCode, Comment: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
