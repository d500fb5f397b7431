package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// OrderRequest describes a market order. Exactly one of Quantity (base asset)
// or QuoteQuantity (quote asset to spend or receive) must be set.
type OrderRequest struct {
	Symbol        string
	Side          models.Side
	Quantity      float64
	QuoteQuantity float64
}

func (r OrderRequest) validate() error {
	if r.Symbol == "" {
		return errors.New("order: symbol is required")
	}
	if r.Side != models.SideBuy && r.Side != models.SideSell {
		return fmt.Errorf("order: unknown side %q", r.Side)
	}
	if (r.Quantity > 0) == (r.QuoteQuantity > 0) {
		return errors.New("order: set exactly one of quantity or quote quantity")
	}
	return nil
}

// Fill is one partial execution of an order
type Fill struct {
	Price           float64 `json:"price,string"`
	Quantity        float64 `json:"qty,string"`
	Commission      float64 `json:"commission,string"`
	CommissionAsset string  `json:"commissionAsset"`
}

// OrderResponse is the FULL order acknowledgement
type OrderResponse struct {
	Symbol              string  `json:"symbol"`
	OrderID             int64   `json:"orderId"`
	ClientOrderID       string  `json:"clientOrderId"`
	TransactTime        int64   `json:"transactTime"`
	Status              string  `json:"status"`
	Side                string  `json:"side"`
	ExecutedQty         float64 `json:"executedQty,string"`
	CummulativeQuoteQty float64 `json:"cummulativeQuoteQty,string"`
	Fills               []Fill  `json:"fills"`
}

// MarketOrder places a signed MARKET order.
func (c *Client) MarketOrder(ctx context.Context, r OrderRequest) (*OrderResponse, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, ErrMissingCredentials
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", r.Symbol)
	params.Set("side", string(r.Side))
	params.Set("type", "MARKET")
	if r.Quantity > 0 {
		params.Set("quantity", strconv.FormatFloat(r.Quantity, 'f', -1, 64))
	} else {
		params.Set("quoteOrderQty", strconv.FormatFloat(r.QuoteQuantity, 'f', -1, 64))
	}
	params.Set("newOrderRespType", "FULL")

	var resp OrderResponse
	if err := c.signed(ctx, http.MethodPost, "/api/v3/order", params, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("symbol", resp.Symbol).
		Str("side", resp.Side).
		Int64("order_id", resp.OrderID).
		Float64("executed_qty", resp.ExecutedQty).
		Str("status", resp.Status).
		Msg("Market order placed")
	return &resp, nil
}

// signed adds recvWindow, timestamp and the HMAC-SHA256 signature of the
// query string, then sends the request with the API key header.
func (c *Client) signed(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	query := params.Encode()
	query += "&signature=" + sign(c.apiSecret, query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	return c.do(ctx, req, out)
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
