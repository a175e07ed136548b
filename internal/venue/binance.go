package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rotorbot/internal/model"
)

// Config holds the exchange client settings.
type Config struct {
	APIKey    string
	APISecret string

	RootURL string        // default: https://api.binance.com
	Timeout time.Duration // per-request HTTP timeout, default: 7s
	Debug   bool
}

// Binance is a minimal spot REST client covering the calls the trading loop
// needs: klines, ticker price, balances, trade fee, and market orders.
type Binance struct {
	apiKey    string
	apiSecret string
	rootURL   string
	debug     bool

	httpClient *http.Client
	now        func() time.Time // injectable for signing tests
}

const defaultRoot = "https://api.binance.com"

var routes = map[string]string{
	"api.klines":       "/api/v3/klines",
	"api.ticker.price": "/api/v3/ticker/price",
	"api.account":      "/api/v3/account",
	"api.trade.fee":    "/sapi/v1/asset/tradeFee",
	"api.order":        "/api/v3/order",
}

// New creates an exchange client from config, applying defaults.
func New(cfg Config) *Binance {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Binance{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		debug:      cfg.Debug,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

// ---- request plumbing ----

// sign appends timestamp and HMAC-SHA256 signature query params.
func (b *Binance) sign(q url.Values) url.Values {
	q.Set("timestamp", strconv.FormatInt(b.now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(q.Encode()))
	q.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	return q
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (b *Binance) doRequest(ctx context.Context, method, route string, q url.Values, signed bool, out any) error {
	uri, ok := routes[route]
	if !ok {
		return &FatalError{Op: route, Err: fmt.Errorf("unknown route")}
	}
	if q == nil {
		q = url.Values{}
	}
	if signed {
		q = b.sign(q)
	}

	reqURL := b.rootURL + uri
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return &FatalError{Op: route, Err: err}
	}
	if b.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	if b.debug {
		log.Printf("[venue] request: %s %s", method, reqURL)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// Network-level failures (DNS, refused, timeout) are retryable.
		return &TransientError{Op: route, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: route, Err: err}
	}
	if b.debug {
		log.Printf("[venue] response: code=%d body=%s", resp.StatusCode, truncate(raw, 512))
	}

	if resp.StatusCode != http.StatusOK {
		return classifyHTTP(route, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransientError{Op: route, Err: fmt.Errorf("parse response: %w", err)}
		}
	}
	return nil
}

// classifyHTTP maps an HTTP failure onto the error taxonomy.
// 429/418 and 5xx are venue-side or rate-limit issues worth retrying;
// auth and request-shape errors are fatal; order endpoints surface the
// venue's rejection code so the executor can report it.
func classifyHTTP(route string, status int, raw []byte) error {
	var ae apiError
	_ = json.Unmarshal(raw, &ae)

	switch {
	case status == http.StatusTooManyRequests || status == 418 || status >= 500:
		return &TransientError{Op: route, Err: fmt.Errorf("status %d: %s", status, ae.Msg)}
	case route == "api.order":
		return &RejectionError{Op: route, Code: ae.Code, Reason: nonEmpty(ae.Msg, fmt.Sprintf("status %d", status))}
	default:
		return &FatalError{Op: route, Err: fmt.Errorf("status %d (code %d): %s", status, ae.Code, ae.Msg)}
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func truncate(raw []byte, n int) string {
	if len(raw) > n {
		return string(raw[:n]) + "..."
	}
	return string(raw)
}

// ---- Venue interface ----

// GetHistory fetches OHLCV bars for a pair at the given interval.
func (b *Binance) GetHistory(ctx context.Context, pair, interval string, limit int) (model.Series, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	// Klines come back as positional arrays:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := b.doRequest(ctx, http.MethodGet, "api.klines", q, false, &rows); err != nil {
		return nil, err
	}

	series := make(model.Series, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			continue
		}
		bar := model.Bar{TS: time.UnixMilli(openMs).UTC()}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		ok := true
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				ok = false
				break
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				ok = false
				break
			}
			*dst = v
		}
		if ok {
			series = append(series, bar)
		}
	}
	return series, nil
}

// GetPrice fetches the current ticker price for a pair.
func (b *Binance) GetPrice(ctx context.Context, pair string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", pair)

	var out struct {
		Price string `json:"price"`
	}
	if err := b.doRequest(ctx, http.MethodGet, "api.ticker.price", q, false, &out); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return 0, &TransientError{Op: "api.ticker.price", Err: fmt.Errorf("parse price %q: %w", out.Price, err)}
	}
	return price, nil
}

// GetBalance fetches the free balance of an asset from the account endpoint.
func (b *Binance) GetBalance(ctx context.Context, asset string) (float64, error) {
	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := b.doRequest(ctx, http.MethodGet, "api.account", nil, true, &out); err != nil {
		return 0, err
	}
	for _, bal := range out.Balances {
		if bal.Asset == asset {
			free, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				return 0, &TransientError{Op: "api.account", Err: fmt.Errorf("parse balance %q: %w", bal.Free, err)}
			}
			return free, nil
		}
	}
	return 0, nil
}

// GetTakerFee fetches the account's taker fee fraction. The endpoint returns
// per-symbol fees; the first entry's taker rate is used for all pairs.
func (b *Binance) GetTakerFee(ctx context.Context) (float64, error) {
	var out []struct {
		Symbol string `json:"symbol"`
		Taker  string `json:"takerCommission"`
	}
	if err := b.doRequest(ctx, http.MethodGet, "api.trade.fee", nil, true, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, &TransientError{Op: "api.trade.fee", Err: fmt.Errorf("empty fee schedule")}
	}
	fee, err := strconv.ParseFloat(out[0].Taker, 64)
	if err != nil {
		return 0, &TransientError{Op: "api.trade.fee", Err: fmt.Errorf("parse fee %q: %w", out[0].Taker, err)}
	}
	return fee, nil
}

// MarketSell places a market sell for qty of the pair's base asset.
func (b *Binance) MarketSell(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return b.marketOrder(ctx, pair, "SELL", qty)
}

// MarketBuy places a market buy for qty of the pair's base asset.
func (b *Binance) MarketBuy(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return b.marketOrder(ctx, pair, "BUY", qty)
}

func (b *Binance) marketOrder(ctx context.Context, pair, side string, qty float64) (model.Fill, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("side", side)
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))

	var out struct {
		ExecutedQty string `json:"executedQty"`
		Fills       []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := b.doRequest(ctx, http.MethodPost, "api.order", q, true, &out); err != nil {
		return model.Fill{}, err
	}

	fill := model.Fill{}
	if v, err := strconv.ParseFloat(out.ExecutedQty, 64); err == nil {
		fill.Qty = v
	}
	if len(out.Fills) > 0 {
		// Quantity-weighted average across partial fills.
		var notional, total float64
		for _, f := range out.Fills {
			p, perr := strconv.ParseFloat(f.Price, 64)
			fq, qerr := strconv.ParseFloat(f.Qty, 64)
			if perr != nil || qerr != nil {
				continue
			}
			notional += p * fq
			total += fq
		}
		if total > 0 {
			fill.Price = notional / total
		}
	}
	if fill.Price == 0 || fill.Qty == 0 {
		return fill, &RejectionError{Op: "api.order", Reason: "order accepted but no fills reported"}
	}
	return fill, nil
}
